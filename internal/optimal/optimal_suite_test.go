package optimal_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOptimal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Optimal Control Scenarios")
}
