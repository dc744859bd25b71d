package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/guregu/null/v6"

	"ContractPulse/internal/model"
)

type yahooContract struct {
	Volume       *float64 `json:"volume"`
	OpenInterest *float64 `json:"openInterest"`
}

type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			Options []struct {
				ExpirationDate int64           `json:"expirationDate"`
				Calls          []yahooContract `json:"calls"`
				Puts           []yahooContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

// FetchOptions summarises the nearest-expiry options chain. A symbol with no
// listed options yields nil.
func (f *YahooFetcher) FetchOptions(ctx context.Context, symbol string) (*model.OptionsSummary, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))

	var chain yahooOptions
	if err := f.getJSON(ctx, u, &chain); err != nil {
		return nil, err
	}
	if chain.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chain.OptionChain.Error.Description)
	}
	if len(chain.OptionChain.Result) == 0 || len(chain.OptionChain.Result[0].Options) == 0 {
		return nil, nil
	}

	o := chain.OptionChain.Result[0].Options[0]
	if len(o.Calls) == 0 && len(o.Puts) == 0 {
		return nil, nil
	}
	volume := func(c yahooContract) *float64 { return c.Volume }
	openInterest := func(c yahooContract) *float64 { return c.OpenInterest }
	return &model.OptionsSummary{
		Expiration:           time.Unix(o.ExpirationDate, 0).UTC(),
		Calls:                len(o.Calls),
		Puts:                 len(o.Puts),
		CallsAvgVolume:       meanContracts(o.Calls, volume),
		PutsAvgVolume:        meanContracts(o.Puts, volume),
		CallsAvgOpenInterest: meanContracts(o.Calls, openInterest),
		PutsAvgOpenInterest:  meanContracts(o.Puts, openInterest),
	}, nil
}

func meanContracts(contracts []yahooContract, pick func(yahooContract) *float64) null.Float {
	var sum float64
	var n int
	for _, c := range contracts {
		if v := pick(c); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(sum / float64(n))
}
