package marketdata

import (
	"context"
	"net/http"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// api is the minimal surface we need from the Finnhub SDK. Narrowing it to
// two methods lets tests substitute a scripted fake without any network.
type api interface {
	quote(ctx context.Context, symbol string) (finnhub.Quote, *http.Response, error)
	profile(ctx context.Context, symbol string) (finnhub.CompanyProfile2, *http.Response, error)
}

// finnhubAPI adapts the generated SDK client to the api interface.
type finnhubAPI struct {
	client *finnhub.DefaultApiService
}

func newFinnhubAPI(apiKey string) *finnhubAPI {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	return &finnhubAPI{client: finnhub.NewAPIClient(cfg).DefaultApi}
}

func (f *finnhubAPI) quote(ctx context.Context, symbol string) (finnhub.Quote, *http.Response, error) {
	return f.client.Quote(ctx).Symbol(symbol).Execute()
}

func (f *finnhubAPI) profile(ctx context.Context, symbol string) (finnhub.CompanyProfile2, *http.Response, error) {
	return f.client.CompanyProfile2(ctx).Symbol(symbol).Execute()
}
