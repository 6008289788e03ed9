package integrators

import (
	"testing"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
)

func benchModel(b *testing.B, n int) (*chemostat.Model, dynamo.State) {
	b.Helper()
	mu := make([]float64, n)
	k := make([]float64, n)
	y := make([]float64, n)
	x := make(dynamo.State, n+1)
	for i := range mu {
		mu[i] = 1 - 0.1*float64(i)
		k[i] = 0.5
		y[i] = 0.5
		x[i] = 0.2
	}
	x[n] = 1
	kin, err := chemostat.NewKinetics(mu, k, y, nil, 2)
	if err != nil {
		b.Fatal(err)
	}
	return chemostat.NewModel(kin, 0.05), x
}

func BenchmarkStep(b *testing.B) {
	for _, name := range Names() {
		b.Run(name, func(b *testing.B) {
			integ, _ := Get(name)
			dyn, x := benchModel(b, 5)
			u := dynamo.Control{0.4}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				x = integ.Step(dyn, x, u, 0, 0.01)
			}
		})
	}
}
