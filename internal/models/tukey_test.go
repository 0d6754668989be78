package models

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/stat/distuv"
)

var _ = Describe("Studentized range", func() {
	It("reduces to a two-sided t probability for two means", func() {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 10}
		for _, q := range []float64{1, 2.5, 4} {
			want := 1 - 2*t.Survival(q/math.Sqrt2)
			Expect(StudentizedRangeCDF(q, 2, 10)).To(BeNumerically("~", want, 1e-6))
		}
	})

	It("matches tabulated critical values", func() {
		Expect(StudentizedRangeQuantile(0.95, 3, 10)).To(BeNumerically("~", 3.877, 2e-3))
		Expect(StudentizedRangeQuantile(0.95, 5, 20)).To(BeNumerically("~", 4.232, 2e-3))
		Expect(StudentizedRangeQuantile(0.95, 2, math.Inf(1))).To(BeNumerically("~", 2.772, 2e-3))
	})

	It("is zero at or below zero", func() {
		Expect(StudentizedRangeCDF(0, 3, 10)).To(Equal(0.0))
		Expect(StudentizedRangeCDF(-1, 3, 10)).To(Equal(0.0))
	})
})

var _ = Describe("Post-hoc contrasts", func() {
	It("produces Tukey-Kramer intervals for every pair", func() {
		ph, err := TukeyHSD(threeGroups(), 0.95)
		Expect(err).NotTo(HaveOccurred())
		Expect(ph.Method).To(Equal("tukey"))
		Expect(ph.DF).To(Equal(6))
		Expect(ph.Contrasts).To(HaveLen(3))

		ba := ph.Contrasts[0]
		Expect(ba.Label()).To(Equal("B-A"))
		Expect(ba.Diff).To(BeNumerically("~", 3, 1e-9))
		Expect(ba.SE).To(BeNumerically("~", math.Sqrt(1.0/3), 1e-9))
		Expect(ba.Stat).To(BeNumerically("~", 3/math.Sqrt(1.0/3), 1e-9))
		Expect(ba.Upper - ba.Diff).To(BeNumerically("~", ba.Diff-ba.Lower, 1e-9))
		Expect(ba.Lower).To(BeNumerically(">", 0))

		ca := ph.Contrasts[1]
		Expect(ca.Label()).To(Equal("C-A"))
		Expect(ca.P).To(BeNumerically("<", ba.P))
		Expect(ca.P).To(BeNumerically("<", 0.01))
	})

	It("adjusts pairwise t tests", func() {
		raw, err := PairwiseT(threeGroups(), 0.95, AdjustNone)
		Expect(err).NotTo(HaveOccurred())
		bonf, err := PairwiseT(threeGroups(), 0.95, AdjustBonferroni)
		Expect(err).NotTo(HaveOccurred())
		Expect(bonf.Method).To(Equal("t-bonferroni"))
		for i := range raw.Contrasts {
			Expect(bonf.Contrasts[i].P).To(BeNumerically("~", math.Min(1, 3*raw.Contrasts[i].P), 1e-12))
		}

		_, err = PairwiseT(threeGroups(), 0.95, "scheffe")
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("AdjustP",
		func(method string, want []float64) {
			got := AdjustP([]float64{0.01, 0.04, 0.03}, method)
			Expect(got).To(HaveLen(len(want)))
			for i := range want {
				Expect(got[i]).To(BeNumerically("~", want[i], 1e-12))
			}
		},
		Entry("none", AdjustNone, []float64{0.01, 0.04, 0.03}),
		Entry("bonferroni", AdjustBonferroni, []float64{0.03, 0.12, 0.09}),
		Entry("holm", AdjustHolm, []float64{0.03, 0.06, 0.06}),
	)
})
