package testgen

import "code-translator/internal/domain/model"

// Cases resolves the test cases for a job: explicit when the payload carries
// at least one case, otherwise the auto battery for sig.
func (g *Generator) Cases(raw []byte, sig model.Signature) ([]model.TestCase, error) {
	if !IsEmpty(raw) {
		return Explicit(raw, sig)
	}
	tuples := g.Auto(sig.ParamTypes())
	cases := make([]model.TestCase, len(tuples))
	for i, t := range tuples {
		cases[i] = model.TestCase{Args: t}
	}
	return cases, nil
}
