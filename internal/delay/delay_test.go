package delay

import (
	"io"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/selector"
	"github.com/jasonKoogler/noc-lat/internal/topology"
	"github.com/jasonKoogler/noc-lat/internal/traffic"
)

func buildModel(
	kind topology.Kind,
	opts selector.Options,
	cycles Cycles,
	stats ...traffic.AccessStats,
) (*Model, *selector.TopologyConfig) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tc, err := selector.Select(kind, opts, config.DefaultConfig(), logger)
	Expect(err).NotTo(HaveOccurred())

	cores := make([]traffic.Core, 0, len(stats))
	for _, s := range stats {
		cores = append(cores, traffic.NewCore(tc.Params, s))
	}

	loads, err := traffic.Build(tc, cores)
	Expect(err).NotTo(HaveOccurred())

	m, err := New(tc, loads, cycles)
	Expect(err).NotTo(HaveOccurred())

	return m, tc
}

var (
	ssspM0 = traffic.AccessStats{L1DAccesses: 400000, LLCAccesses: 150000}
	ssspM1 = traffic.AccessStats{L1DAccesses: 300000, LLCAccesses: 100000}
	ssspM2 = traffic.AccessStats{L1DAccesses: 200000, LLCAccesses: 90000}

	ssspCycles = Cycles{Baseline: 2000000, Checked: 2000000}
)

var _ = Describe("Wait", func() {
	It("should be the inverse of the idle capacity", func() {
		w, err := Wait(2.0/3, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(BeNumerically("~", 6, 1e-12))
	})

	It("should be the inverse service rate for an idle server", func() {
		w, err := Wait(0.5, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(2.0))
	})

	It("should grow without bound near saturation", func() {
		prev := 0.0
		for _, rate := range []float64{0.6, 0.66, 0.666, 0.6666} {
			w, err := Wait(2.0/3, rate)
			Expect(err).NotTo(HaveOccurred())
			Expect(w).To(BeNumerically(">", prev))
			prev = w
		}
		Expect(prev).To(BeNumerically(">", 10000))
	})

	It("should reject a saturated server", func() {
		_, err := Wait(0.5, 0.5)
		Expect(err).To(MatchError(modelerr.ErrNumericConsistency))

		_, err = Wait(0.5, 0.75)
		var serr *SaturationError
		Expect(err).To(BeAssignableToTypeOf(serr))
	})

	It("should reject NaN rates", func() {
		_, err := Wait(0.5, math.NaN())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Model", func() {
	Context("flat layout", func() {
		It("should match the round-trip delays of a single main core", func() {
			m, _ := buildModel(topology.OneMainTwoCheckers, selector.Options{}, ssspCycles, ssspM0)

			cd, err := m.Core(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cd.Baseline).To(BeNumerically("~", 22.771966274490858, 1e-9))
			Expect(cd.Checked).To(BeNumerically("~", 25.161178279959728, 1e-9))
			Expect(cd.Delta).To(BeNumerically("~", cd.Checked-cd.Baseline, 1e-12))
		})

		It("should report a request and response route per class", func() {
			m, _ := buildModel(topology.OneMainFourCheckers, selector.Options{}, ssspCycles, ssspM0)

			cd, err := m.Core(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cd.Routes).To(HaveLen(4))

			for _, rd := range cd.Routes {
				Expect(rd.Hops).To(HaveLen(5))
				Expect(rd.Weight).To(Equal(1.0))

				sum := 0.0
				for _, h := range rd.Hops {
					sum += h.Delay
				}
				Expect(rd.Total).To(BeNumerically("~", sum, 1e-9))
			}
		})

		It("should evaluate each main core of a shared cache", func() {
			m, _ := buildModel(topology.TwoMains, selector.Options{}, ssspCycles, ssspM0, ssspM1)

			cds, err := m.Cores(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(cds[0].Delta).To(BeNumerically("~", 2.3892120054688704, 1e-9))
			Expect(cds[1].Delta).To(BeNumerically("~", 1.0452009175413437, 1e-9))
		})

		It("should stay at zero delta without log traffic", func() {
			m, _ := buildModel(topology.OneMainFourCheckers, selector.Options{}, ssspCycles,
				traffic.AccessStats{LLCAccesses: 150000})

			cd, err := m.Core(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cd.Delta).To(BeZero())
		})
	})

	Context("mesh layouts", func() {
		It("should weight routes to the inner mesh slices", func() {
			m, _ := buildModel(topology.MeshInner, selector.Options{NumMains: 3}, ssspCycles,
				ssspM0, ssspM1, ssspM2)

			cds, err := m.Cores(3)
			Expect(err).NotTo(HaveOccurred())

			Expect(cds[0].Baseline).To(BeNumerically("~", 25.686495220267556, 1e-9))
			Expect(cds[0].Checked).To(BeNumerically("~", 34.41461074079004, 1e-9))
			Expect(cds[1].Delta).To(BeNumerically("~", 5.272290099575763, 1e-9))
			Expect(cds[2].Delta).To(BeNumerically("~", 4.4783832577176454, 1e-9))

			// Five request and five response routes per class.
			Expect(cds[0].Routes).To(HaveLen(20))

			weights := 0.0
			for _, rd := range cds[0].Routes {
				if rd.Class == topology.Baseline && rd.Route.Direction == topology.Request {
					weights += rd.Weight
				}
			}
			Expect(weights).To(Equal(1.0))
		})

		It("should add the core router and uplink on the outer mesh", func() {
			m, _ := buildModel(topology.MeshOuter,
				selector.Options{NumMains: 2, NumCheckersPerMain: 2}, ssspCycles, ssspM0, ssspM1)

			cds, err := m.Cores(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(cds[0].Delta).To(BeNumerically("~", 4.214718212183001, 1e-9))
			Expect(cds[1].Baseline).To(BeNumerically("~", 28.734667703496363, 1e-9))
			Expect(cds[1].Checked).To(BeNumerically("~", 31.08561605904035, 1e-9))

			for _, rd := range cds[0].Routes {
				if rd.Route.Kind == topology.DiagonalVia {
					Expect(rd.Hops).To(HaveLen(9))
				}
			}
		})
	})

	Context("invalid inputs", func() {
		It("should reject non-positive cycle counts", func() {
			logger := logrus.New()
			logger.SetOutput(io.Discard)
			tc, err := selector.Select(topology.OneMainTwoCheckers, selector.Options{},
				config.DefaultConfig(), logger)
			Expect(err).NotTo(HaveOccurred())

			loads, err := traffic.Build(tc, []traffic.Core{{}})
			Expect(err).NotTo(HaveOccurred())

			_, err = New(tc, loads, Cycles{Baseline: 0, Checked: 10})
			Expect(err).To(MatchError(modelerr.ErrNumericConsistency))

			_, err = New(tc, loads, Cycles{Baseline: 10, Checked: -1})
			var cerr *CycleCountError
			Expect(err).To(BeAssignableToTypeOf(cerr))
		})

		It("should name the saturated hop", func() {
			m, _ := buildModel(topology.OneMainTwoCheckers, selector.Options{},
				Cycles{Baseline: 1000000, Checked: 1000000},
				traffic.AccessStats{L1DAccesses: 100000, LLCAccesses: 400000})

			_, err := m.Core(0)
			Expect(err).To(MatchError(modelerr.ErrNumericConsistency))

			serr, ok := err.(*SaturationError)
			Expect(ok).To(BeTrue())
			Expect(serr.Rate).To(BeNumerically(">=", serr.ServiceRate))
			Expect(serr.Error()).To(ContainSubstring("too many packets"))
		})
	})
})

var _ = Describe("Combine", func() {
	It("should round a single delta up", func() {
		Expect(Combine([]float64{0.2139})).To(Equal(int64(1)))
		Expect(Combine([]float64{3})).To(Equal(int64(3)))
	})

	It("should keep a negative single delta", func() {
		Expect(Combine([]float64{-97.4})).To(Equal(int64(-97)))
	})

	It("should take the ceiling of the geometric mean", func() {
		Expect(Combine([]float64{2.3892120054688704, 1.0452009175413437})).To(Equal(int64(2)))
		Expect(Combine([]float64{8.728115520522483, 5.272290099575763, 4.4783832577176454})).
			To(Equal(int64(6)))
		Expect(Combine([]float64{1, 2, 4, 8})).To(Equal(int64(3)))
	})

	It("should be zero when any core sees no change", func() {
		Expect(Combine([]float64{0, 5})).To(Equal(int64(0)))
	})

	It("should reject a negative product of several deltas", func() {
		_, err := Combine([]float64{-1, 2})
		Expect(err).To(MatchError(modelerr.ErrNumericConsistency))

		var gerr *GeomeanDomainError
		Expect(err).To(BeAssignableToTypeOf(gerr))
	})

	It("should accept an even number of negative deltas", func() {
		Expect(Combine([]float64{-2, -8})).To(Equal(int64(4)))
	})

	It("should reject an empty input", func() {
		_, err := Combine(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("exactSum", func() {
	It("should not lose small terms", func() {
		Expect(exactSum([]float64{1e16, 1, -1e16})).To(Equal(1.0))
		Expect(exactSum([]float64{0.1, 0.2, 0.3})).To(Equal(0.6))
	})

	It("should handle empty and single inputs", func() {
		Expect(exactSum(nil)).To(BeZero())
		Expect(exactSum([]float64{2.5})).To(Equal(2.5))
	})
})
