package models

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Four plots of three cores each: MSW = 3.75, MSB = 136, grand mean 14.
var balancedY = []float64{10, 12, 14, 20, 21, 25, 5, 7, 6, 15, 18, 15}
var balancedPlots = []string{"p1", "p1", "p1", "p2", "p2", "p2", "p3", "p3", "p3", "p4", "p4", "p4"}

// Three control and three treated plots, two cores each.
var nestedY = []float64{7, 9, 11, 13, 9, 11, 17, 19, 21, 23, 19, 21}
var nestedPlots = []string{"p1", "p1", "p2", "p2", "p3", "p3", "p4", "p4", "p5", "p5", "p6", "p6"}
var nestedTrt = []string{"control", "control", "control", "control", "control", "control", "x", "x", "x", "x", "x", "x"}

func nestedDesign() *Design {
	d, err := NewDesign(len(nestedY), []Factor{{Name: "trt", Levels: []string{"control", "x"}, Values: nestedTrt}}, false)
	Expect(err).NotTo(HaveOccurred())
	return d
}

var _ = Describe("FitRandomIntercept", func() {
	Context("balanced one-way layout", func() {
		d := InterceptOnly(len(balancedY))

		It("reproduces the ANOVA estimators under REML", func() {
			fit, err := FitRandomIntercept(balancedY, d, balancedPlots, REML)
			Expect(err).NotTo(HaveOccurred())
			Expect(fit.Method).To(Equal(REML))
			Expect(fit.Groups).To(Equal(4))
			Expect(fit.Coefs[0].Estimate).To(BeNumerically("~", 14, 1e-6))
			Expect(fit.Sigma * fit.Sigma).To(BeNumerically("~", 3.75, 0.01))
			Expect(fit.SigmaU * fit.SigmaU).To(BeNumerically("~", (136-3.75)/3, 0.05))
			Expect(fit.Coefs[0].SE).To(BeNumerically("~", math.Sqrt(136.0/12), 0.01))
		})

		It("shrinks the group variance under ML", func() {
			fit, err := FitRandomIntercept(balancedY, d, balancedPlots, ML)
			Expect(err).NotTo(HaveOccurred())
			Expect(fit.Sigma * fit.Sigma).To(BeNumerically("~", 3.75, 0.01))
			Expect(fit.SigmaU * fit.SigmaU).To(BeNumerically("~", 32.75, 0.05))
			Expect(fit.Coefs[0].SE).To(BeNumerically("~", math.Sqrt(8.5), 0.01))
			Expect(fit.AIC).To(BeNumerically("~", -2*fit.LogLik+6, 1e-9))
		})
	})

	Context("no between-group variation", func() {
		y := []float64{1, 3, 2, 2, 3, 1}
		groups := []string{"a", "a", "b", "b", "c", "c"}
		d := InterceptOnly(len(y))

		It("lands on the boundary and matches least squares", func() {
			mixed, err := FitRandomIntercept(y, d, groups, ML)
			Expect(err).NotTo(HaveOccurred())
			Expect(mixed.Ratio).To(Equal(0.0))
			Expect(mixed.SigmaU).To(Equal(0.0))

			ols, err := FitOLS(y, d)
			Expect(err).NotTo(HaveOccurred())
			Expect(mixed.Coefs[0].Estimate).To(BeNumerically("~", ols.Coefs[0].Estimate, 1e-9))
			Expect(mixed.LogLik).To(BeNumerically("~", ols.LogLik, 1e-9))

			re, err := RandomEffectTest(ols, mixed)
			Expect(err).NotTo(HaveOccurred())
			Expect(re.Stat).To(Equal(0.0))
			Expect(re.P).To(Equal(1.0))
		})
	})

	It("needs at least two groups", func() {
		_, err := FitRandomIntercept([]float64{1, 2, 3, 4}, InterceptOnly(4), []string{"a", "a", "a", "a"}, ML)
		Expect(errors.Is(err, ErrTooFewGroups)).To(BeTrue())
	})

	It("checks dimensions", func() {
		_, err := FitRandomIntercept([]float64{1, 2, 3, 4}, InterceptOnly(4), []string{"a", "b"}, ML)
		Expect(errors.Is(err, ErrDimensionMismatch)).To(BeTrue())
	})
})

var _ = Describe("Mixed model tests", func() {
	var null, full *MixedFit

	BeforeEach(func() {
		var err error
		null, err = FitRandomIntercept(nestedY, InterceptOnly(len(nestedY)), nestedPlots, ML)
		Expect(err).NotTo(HaveOccurred())
		full, err = FitRandomIntercept(nestedY, nestedDesign(), nestedPlots, ML)
		Expect(err).NotTo(HaveOccurred())
	})

	It("detects the treatment effect with a likelihood ratio", func() {
		lrt, err := LikelihoodRatio(null, full)
		Expect(err).NotTo(HaveOccurred())
		Expect(lrt.DF).To(Equal(1))
		Expect(lrt.Stat).To(BeNumerically("~", 2*(full.LogLik-null.LogLik), 1e-9))
		Expect(lrt.P).To(BeNumerically("<", 0.01))

		c, ok := full.Coef("trtx")
		Expect(ok).To(BeTrue())
		Expect(c.Estimate).To(BeNumerically("~", 10, 1e-6))
	})

	It("refuses REML fits and swapped models", func() {
		reml, err := FitRandomIntercept(nestedY, nestedDesign(), nestedPlots, REML)
		Expect(err).NotTo(HaveOccurred())
		_, err = LikelihoodRatio(null, reml)
		Expect(errors.Is(err, ErrNotNested)).To(BeTrue())
		_, err = LikelihoodRatio(full, null)
		Expect(errors.Is(err, ErrNotNested)).To(BeTrue())
	})

	It("computes a Wald test that agrees with the single coefficient z", func() {
		w, err := full.Wald("trt")
		Expect(err).NotTo(HaveOccurred())
		Expect(w.DF).To(Equal(1))
		c, _ := full.Coef("trtx")
		Expect(w.Chi2).To(BeNumerically("~", c.Stat*c.Stat, 1e-6))
		Expect(w.P).To(BeNumerically("~", c.P, 1e-6))

		_, err = full.Wald("hzn")
		Expect(err).To(HaveOccurred())
	})

	It("halves the chi-square tail for the random intercept", func() {
		ols, err := FitOLS(nestedY, nestedDesign())
		Expect(err).NotTo(HaveOccurred())
		re, err := RandomEffectTest(ols, full)
		Expect(err).NotTo(HaveOccurred())
		Expect(re.Stat).To(BeNumerically(">=", 0))
		Expect(re.P).To(BeNumerically("<=", 1))
		if re.Stat > 0 {
			Expect(re.P).To(BeNumerically("<=", 0.5))
		}
	})
})
