package model

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// TaxModelName is the registry name of the built-in taxation model.
const TaxModelName = "tax"

// Norm identifiers read by the tax model.
const (
	NormTax            = "tax"
	NormRedistribution = "redistribution"
)

// TaxParams configures the taxation model.
type TaxParams struct {
	Agents        int
	Segments      int
	InvestRate    float64
	EvasionProb   float64
	CatchProb     float64
	FineRate      float64
	InitialWealth float64
}

// DefaultTaxParams returns the parameters used when no argument is given
func DefaultTaxParams() TaxParams {
	return TaxParams{
		Agents:        200,
		Segments:      5,
		InvestRate:    0.05,
		EvasionProb:   0.2,
		CatchProb:     0.5,
		FineRate:      0.5,
		InitialWealth: 100,
	}
}

// TaxModel is a society of agents whose wealth grows through investment, is
// taxed by wealth segment and is redistributed from a common fund. Agents may
// evade taxes; caught evaders pay their due plus a fine.
//
// Norm parameters: tax.rate_<i> is the tax rate of segment i (poorest first),
// redistribution.rate_<i> is the share of the fund going to segment i. Shares
// are normalized to sum to one.
type TaxModel struct {
	params TaxParams
	rng    *utils.RandSource
	wealth []float64

	evaders int
	caught  int
}

// NewTaxModel is the Constructor of the tax model. Positional arguments are
// agents and segments; every TaxParams field is also accepted as a keyword
// (n_agents, n_segments, invest_rate, evasion_prob, catch_prob, fine_rate,
// initial_wealth).
func NewTaxModel(args []any, kwargs map[string]any, rng *utils.RandSource) (Model, error) {
	p := DefaultTaxParams()
	r := newArgReader(args, kwargs)

	var err error
	if p.Agents, err = r.int(0, "n_agents", p.Agents); err != nil {
		return nil, err
	}
	if p.Segments, err = r.int(1, "n_segments", p.Segments); err != nil {
		return nil, err
	}
	if p.InvestRate, err = r.float(-1, "invest_rate", p.InvestRate); err != nil {
		return nil, err
	}
	if p.EvasionProb, err = r.float(-1, "evasion_prob", p.EvasionProb); err != nil {
		return nil, err
	}
	if p.CatchProb, err = r.float(-1, "catch_prob", p.CatchProb); err != nil {
		return nil, err
	}
	if p.FineRate, err = r.float(-1, "fine_rate", p.FineRate); err != nil {
		return nil, err
	}
	if p.InitialWealth, err = r.float(-1, "initial_wealth", p.InitialWealth); err != nil {
		return nil, err
	}
	if err := r.unknown(2); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = utils.NewRandSource(0)
	}

	m := &TaxModel{
		params: p,
		rng:    rng,
		wealth: make([]float64, p.Agents),
	}
	for i := range m.wealth {
		// Spread initial wealth so that segments are meaningful from step one.
		m.wealth[i] = p.InitialWealth * rng.UniformFloat64(0.5, 1.5)
	}
	return m, nil
}

func (p TaxParams) validate() error {
	if p.Agents <= 0 {
		return fmt.Errorf("n_agents must be positive, got %d", p.Agents)
	}
	if p.Segments <= 0 || p.Segments > p.Agents {
		return fmt.Errorf("n_segments must be in [1, n_agents], got %d", p.Segments)
	}
	for name, v := range map[string]float64{
		"evasion_prob": p.EvasionProb,
		"catch_prob":   p.CatchProb,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, v)
		}
	}
	if p.FineRate < 0 {
		return fmt.Errorf("fine_rate cannot be negative, got %f", p.FineRate)
	}
	if p.InitialWealth <= 0 {
		return fmt.Errorf("initial_wealth must be positive, got %f", p.InitialWealth)
	}
	return nil
}

// SegmentParam is the parameter name of segment i.
func SegmentParam(i int) string {
	return "rate_" + strconv.Itoa(i)
}

// TaxNormSpace returns the norm space read by a tax model with the given segments.
func TaxNormSpace(segments int) models.NormSpace {
	params := make([]string, segments)
	for i := range params {
		params[i] = SegmentParam(i)
	}
	return models.NormSpace{
		NormTax:            params,
		NormRedistribution: append([]string(nil), params...),
	}
}

// Step advances the society by one period under norms.
func (m *TaxModel) Step(norms models.Assignment) error {
	rates, err := m.segmentValues(norms, NormTax)
	if err != nil {
		return err
	}
	shares, err := m.segmentValues(norms, NormRedistribution)
	if err != nil {
		return err
	}
	for i := range rates {
		rates[i] = utils.ClampFloat64(rates[i], 0, 1)
		if shares[i] < 0 {
			shares[i] = 0
		}
	}
	normalizeShares(shares)

	// Investment returns, mean InvestRate.
	for i := range m.wealth {
		m.wealth[i] += m.wealth[i] * m.params.InvestRate * m.rng.UniformFloat64(0, 2)
	}

	segmentOf, members := m.segments()
	fund := 0.0
	m.evaders, m.caught = 0, 0
	for i := range m.wealth {
		due := rates[segmentOf[i]] * m.wealth[i]
		if m.rng.BernoulliBool(m.params.EvasionProb) {
			m.evaders++
			if !m.rng.BernoulliBool(m.params.CatchProb) {
				continue
			}
			m.caught++
			// Caught evaders cannot lose more than they own.
			due += m.params.FineRate * due
			if due > m.wealth[i] {
				due = m.wealth[i]
			}
		}
		m.wealth[i] -= due
		fund += due
	}

	for seg, agents := range members {
		if len(agents) == 0 {
			continue
		}
		each := fund * shares[seg] / float64(len(agents))
		for _, i := range agents {
			m.wealth[i] += each
		}
	}
	return nil
}

func (m *TaxModel) segmentValues(norms models.Assignment, norm string) ([]float64, error) {
	out := make([]float64, m.params.Segments)
	for i := range out {
		v, ok := norms.Get(norm, SegmentParam(i))
		if !ok {
			return nil, fmt.Errorf("norm %s is missing parameter %s", norm, SegmentParam(i))
		}
		out[i] = v
	}
	return out, nil
}

// segments ranks agents by wealth and splits them into equally sized segments.
func (m *TaxModel) segments() ([]int, [][]int) {
	n := len(m.wealth)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return m.wealth[order[a]] < m.wealth[order[b]] })

	segmentOf := make([]int, n)
	members := make([][]int, m.params.Segments)
	for rank, agent := range order {
		seg := rank * m.params.Segments / n
		segmentOf[agent] = seg
		members[seg] = append(members[seg], agent)
	}
	return segmentOf, members
}

func normalizeShares(shares []float64) {
	total := utils.Sum(shares)
	if total <= 0 {
		for i := range shares {
			shares[i] = 1 / float64(len(shares))
		}
		return
	}
	for i := range shares {
		shares[i] /= total
	}
}

// Wealth returns a copy of agent wealth
func (m *TaxModel) Wealth() []float64 {
	return utils.CloneFloat64s(m.wealth)
}

// InitialWealth returns the configured mean initial wealth
func (m *TaxModel) InitialWealth() float64 {
	return m.params.InitialWealth
}

// Evasion returns how many agents evaded in the last step and how many were caught.
func (m *TaxModel) Evasion() (evaders, caught int) {
	return m.evaders, m.caught
}
