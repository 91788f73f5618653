package journal

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// PositionSummary aggregates every buy and sell of one symbol
type PositionSummary struct {
	Symbol          string  `json:"symbol"`
	Buys            int     `json:"buys"`
	Sells           int     `json:"sells"`
	QuantityBought  float64 `json:"quantity_bought"`
	QuantitySold    float64 `json:"quantity_sold"`
	QuantityHeld    float64 `json:"quantity_held"`
	AverageBuyPrice float64 `json:"average_buy_price"`
	OpenCost        float64 `json:"open_cost"`
	Proceeds        float64 `json:"proceeds"`
	RealizedPnL     float64 `json:"realized_pnl"`
}

// Summarize builds per-symbol summaries, sorted by symbol. Sells whose buy is
// not in buys are ignored.
func Summarize(buys []Buy, sells []Sell) []PositionSummary {
	buyByID := make(map[string]Buy, len(buys))
	for _, b := range buys {
		buyByID[b.ID] = b
	}

	type acc struct {
		summary  PositionSummary
		prices   []float64
		weights  []float64
		bought   decimal.Decimal
		sold     decimal.Decimal
		soldBy   map[string]decimal.Decimal
		openCost decimal.Decimal
		proceeds decimal.Decimal
		realized decimal.Decimal
	}
	bySymbol := make(map[string]*acc)
	get := func(symbol string) *acc {
		a, ok := bySymbol[symbol]
		if !ok {
			a = &acc{summary: PositionSummary{Symbol: symbol}, soldBy: make(map[string]decimal.Decimal)}
			bySymbol[symbol] = a
		}
		return a
	}

	for _, b := range buys {
		a := get(b.Symbol)
		a.summary.Buys++
		a.bought = a.bought.Add(decimal.NewFromFloat(b.Quantity))
		a.prices = append(a.prices, b.BuyPrice)
		a.weights = append(a.weights, b.Quantity)
	}

	for _, s := range sells {
		b, ok := buyByID[s.BuyID]
		if !ok {
			continue
		}
		a := get(b.Symbol)
		a.summary.Sells++

		qty := decimal.NewFromFloat(s.Quantity)
		a.sold = a.sold.Add(qty)
		a.soldBy[b.ID] = a.soldBy[b.ID].Add(qty)
		a.proceeds = a.proceeds.Add(qty.Mul(decimal.NewFromFloat(s.SellPrice)))
		a.realized = a.realized.Add(qty.Mul(decimal.NewFromFloat(s.SellPrice).Sub(decimal.NewFromFloat(b.BuyPrice))))
	}

	for _, b := range buys {
		a := bySymbol[b.Symbol]
		remaining := decimal.NewFromFloat(b.Quantity).Sub(a.soldBy[b.ID])
		if remaining.IsPositive() {
			a.openCost = a.openCost.Add(remaining.Mul(decimal.NewFromFloat(b.BuyPrice)))
		}
	}

	summaries := make([]PositionSummary, 0, len(bySymbol))
	for _, a := range bySymbol {
		s := a.summary
		s.QuantityBought = a.bought.InexactFloat64()
		s.QuantitySold = a.sold.InexactFloat64()
		s.QuantityHeld = a.bought.Sub(a.sold).InexactFloat64()
		if len(a.prices) > 0 {
			s.AverageBuyPrice = stat.Mean(a.prices, a.weights)
		}
		s.OpenCost = a.openCost.Round(6).InexactFloat64()
		s.Proceeds = a.proceeds.Round(6).InexactFloat64()
		s.RealizedPnL = a.realized.Round(6).InexactFloat64()
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Symbol < summaries[j].Symbol
	})
	return summaries
}

// Summary loads all rows and summarizes them per symbol
func (r *Repository) Summary(ctx context.Context) ([]PositionSummary, error) {
	buys, err := r.ListBuys(ctx)
	if err != nil {
		return nil, err
	}
	sells, err := r.ListAllSells(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(buys, sells), nil
}
