package models

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Design", func() {
	It("treatment-codes factors against the first level", func() {
		d, err := NewDesign(4, []Factor{
			{Name: "trt", Levels: []string{"c", "x"}, Values: []string{"c", "x", "c", "x"}},
		}, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Names).To(Equal([]string{"(Intercept)", "trtx"}))
		Expect(d.X.At(1, 1)).To(Equal(1.0))
		Expect(d.X.At(2, 1)).To(Equal(0.0))
	})

	It("drops interaction columns for empty cells", func() {
		d, err := NewDesign(4, []Factor{
			{Name: "trt", Levels: []string{"c", "x", "y"}, Values: []string{"c", "x", "y", "x"}},
			{Name: "hzn", Levels: []string{"O", "M"}, Values: []string{"O", "O", "O", "M"}},
		}, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Names).To(Equal([]string{"(Intercept)", "trtx", "trty", "hznM", "trtx:hznM"}))

		term, ok := d.Term("trt:hzn")
		Expect(ok).To(BeTrue())
		Expect(term.Cols).To(Equal([]int{4}))
	})

	It("rejects unknown levels", func() {
		_, err := NewDesign(1, []Factor{{Name: "trt", Levels: []string{"c"}, Values: []string{"z"}}}, false)
		Expect(err).To(HaveOccurred())
	})

	It("keeps the leading terms", func() {
		d, err := NewDesign(4, []Factor{
			{Name: "trt", Levels: []string{"c", "x"}, Values: []string{"c", "x", "c", "x"}},
			{Name: "hzn", Levels: []string{"O", "M"}, Values: []string{"O", "O", "M", "M"}},
		}, false)
		Expect(err).NotTo(HaveOccurred())
		sub := d.Leading(2)
		Expect(sub.Names).To(Equal([]string{"(Intercept)", "trtx"}))
		Expect(sub.Cols()).To(Equal(2))
		Expect(sub.Rows()).To(Equal(4))
	})
})

var _ = Describe("FitOLS", func() {
	var (
		y   []float64
		d   *Design
		fit *OLSFit
	)

	BeforeEach(func() {
		groups := threeGroups()
		var labels []string
		y, labels = flatten(groups)
		var err error
		d, err = NewDesign(len(y), []Factor{{Name: "g", Levels: levelsOf(groups), Values: labels}}, false)
		Expect(err).NotTo(HaveOccurred())
		fit, err = FitOLS(y, d)
		Expect(err).NotTo(HaveOccurred())
	})

	It("recovers cell means as treatment contrasts", func() {
		Expect(fit.Coefs[0].Estimate).To(BeNumerically("~", 2, 1e-9))
		Expect(fit.Coefs[1].Estimate).To(BeNumerically("~", 3, 1e-9))
		Expect(fit.Coefs[2].Estimate).To(BeNumerically("~", 6, 1e-9))
	})

	It("reports residual and fit statistics", func() {
		Expect(fit.DFResid).To(Equal(6))
		Expect(fit.RSS).To(BeNumerically("~", 6, 1e-9))
		Expect(fit.Sigma).To(BeNumerically("~", 1, 1e-9))
		Expect(fit.R2).To(BeNumerically("~", 0.9, 1e-9))
		Expect(fit.F).To(BeNumerically("~", 27, 1e-9))
		// F(2, 6) survival is (1 + 2F/6)^-3
		Expect(fit.FP).To(BeNumerically("~", 0.001, 1e-9))

		c, ok := fit.Coef("gB")
		Expect(ok).To(BeTrue())
		Expect(c.SE).To(BeNumerically("~", math.Sqrt(2.0/3), 1e-9))
	})

	It("fails on underdetermined designs", func() {
		_, err := FitOLS(y[:3], d.Leading(1))
		Expect(errors.Is(err, ErrDimensionMismatch)).To(BeTrue())
	})

	It("builds a sequential ANOVA table", func() {
		rows, err := SequentialANOVA(y, d)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].Term).To(Equal("g"))
		Expect(rows[0].DF).To(Equal(2))
		Expect(rows[0].SS).To(BeNumerically("~", 54, 1e-9))
		Expect(rows[0].F).To(BeNumerically("~", 27, 1e-9))
		Expect(rows[1].Term).To(Equal("Residuals"))
		Expect(rows[1].SS).To(BeNumerically("~", 6, 1e-9))
	})
})

var _ = Describe("OneWayANOVA", func() {
	It("matches the hand computation", func() {
		tab, err := OneWayANOVA(threeGroups())
		Expect(err).NotTo(HaveOccurred())
		Expect(tab.SSBetween).To(BeNumerically("~", 54, 1e-9))
		Expect(tab.SSWithin).To(BeNumerically("~", 6, 1e-9))
		Expect(tab.DFBetween).To(Equal(2))
		Expect(tab.DFWithin).To(Equal(6))
		Expect(tab.F).To(BeNumerically("~", 27, 1e-9))
		Expect(tab.P).To(BeNumerically("~", 0.001, 1e-9))
	})

	It("ignores empty groups and needs two", func() {
		_, err := OneWayANOVA([]Group{{Label: "A", Values: []float64{1, 2}}, {Label: "B"}})
		Expect(errors.Is(err, ErrTooFewGroups)).To(BeTrue())
	})
})
