package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Client is an HTTP client for the escrow ledger service.
type Client struct {
	httpClient *http.Client
	BaseURL    string
}

// NewClient creates a new escrow client.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    baseURL,
	}
}

// Ensure Client implements the Gateway interface.
var _ Gateway = (*Client)(nil)

func (c *Client) GetDeposit(address string) (float64, error) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	if err := c.do("GET", fmt.Sprintf("/v1/deposits/%s", address), nil, &out); err != nil {
		return 0, fmt.Errorf("failed to fetch deposit for %s: %w", address, err)
	}
	return out.Amount, nil
}

func (c *Client) CreateEscrow(address string, buyIn float64) (string, error) {
	in := struct {
		Address string  `json:"address"`
		BuyIn   float64 `json:"buy_in"`
	}{address, buyIn}
	var out struct {
		Ref string `json:"ref"`
	}
	if err := c.do("POST", "/v1/escrows", in, &out); err != nil {
		return "", fmt.Errorf("failed to create escrow: %w", err)
	}
	log.Debug("Created escrow", "ref", out.Ref, "address", address, "buyIn", buyIn)
	return out.Ref, nil
}

func (c *Client) JoinEscrow(ref, address string) error {
	in := struct {
		Address string `json:"address"`
	}{address}
	if err := c.do("POST", fmt.Sprintf("/v1/escrows/%s/join", ref), in, nil); err != nil {
		return fmt.Errorf("failed to join escrow %s: %w", ref, err)
	}
	return nil
}

func (c *Client) Settle(ref, winnerAddress string) (Settlement, error) {
	in := struct {
		Winner string `json:"winner"`
	}{winnerAddress}
	var out Settlement
	if err := c.do("POST", fmt.Sprintf("/v1/escrows/%s/settle", ref), in, &out); err != nil {
		return Settlement{}, fmt.Errorf("failed to settle escrow %s: %w", ref, err)
	}
	log.Info("Settled escrow", "ref", ref, "winner", winnerAddress, "payout", out.Amount, "settlementRef", out.Ref)
	return out, nil
}

func (c *Client) PayLottery(winnerAddress string) (Settlement, error) {
	in := struct {
		Winner string `json:"winner"`
	}{winnerAddress}
	var out Settlement
	if err := c.do("POST", "/v1/lottery/pay", in, &out); err != nil {
		return Settlement{}, fmt.Errorf("failed to pay lottery: %w", err)
	}
	log.Info("Paid lottery pool", "winner", winnerAddress, "payout", out.Amount, "settlementRef", out.Ref)
	return out, nil
}

func (c *Client) GetLotteryPool() (float64, error) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	if err := c.do("GET", "/v1/lottery/pool", nil, &out); err != nil {
		return 0, fmt.Errorf("failed to fetch lottery pool: %w", err)
	}
	return out.Amount, nil
}

func (c *Client) do(method, path string, in, out any) error {
	url := c.BaseURL + path

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("Escrow request", "method", method, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Error("Received non-OK HTTP status from escrow service", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("received non-OK HTTP status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
