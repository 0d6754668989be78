package models

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestModels(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Models Suite")
}

// threeGroups has group means 2, 5, 8 and within-group SS of 2 each.
func threeGroups() []Group {
	return []Group{
		{Label: "A", Values: []float64{1, 2, 3}},
		{Label: "B", Values: []float64{4, 5, 6}},
		{Label: "C", Values: []float64{7, 8, 9}},
	}
}

func flatten(groups []Group) (y []float64, labels []string) {
	for _, g := range groups {
		for _, v := range g.Values {
			y = append(y, v)
			labels = append(labels, g.Label)
		}
	}
	return y, labels
}

func levelsOf(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label
	}
	return out
}
