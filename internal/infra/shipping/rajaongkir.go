package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// RajaOngkirClient はRajaOngkir互換の送料APIを呼ぶ。
type RajaOngkirClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRajaOngkirClient(baseURL, apiKey string, httpClient *http.Client) *RajaOngkirClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RajaOngkirClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type costResponse struct {
	RajaOngkir struct {
		Status struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"status"`
		Results []struct {
			Code  string `json:"code"`
			Costs []struct {
				Service     string `json:"service"`
				Description string `json:"description"`
				Cost        []struct {
					Value decimal.Decimal `json:"value"`
					ETD   string          `json:"etd"`
				} `json:"cost"`
			} `json:"costs"`
		} `json:"results"`
	} `json:"rajaongkir"`
}

// Cost は1配送業者分の送料候補を返す。
func (c *RajaOngkirClient) Cost(ctx context.Context, originID, destinationID string, weightGrams int64, courier string) ([]model.ShippingOption, error) {
	form := url.Values{}
	form.Set("origin", originID)
	form.Set("destination", destinationID)
	form.Set("weight", strconv.FormatInt(weightGrams, 10))
	form.Set("courier", courier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", courier, err)
	}
	defer resp.Body.Close()

	var body costResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response (http %d): %w", courier, resp.StatusCode, err)
	}

	st := body.RajaOngkir.Status
	if resp.StatusCode != http.StatusOK || (st.Code != 0 && st.Code != http.StatusOK) {
		return nil, fmt.Errorf("%s: http %d: %s", courier, resp.StatusCode, st.Description)
	}

	out := []model.ShippingOption{}
	for _, r := range body.RajaOngkir.Results {
		code := r.Code
		if code == "" {
			code = courier
		}
		for _, svc := range r.Costs {
			for _, cost := range svc.Cost {
				out = append(out, model.ShippingOption{
					CourierCode: code,
					Service:     svc.Service,
					Description: svc.Description,
					Cost:        cost.Value,
					ETD:         cost.ETD,
				})
			}
		}
	}
	return out, nil
}
