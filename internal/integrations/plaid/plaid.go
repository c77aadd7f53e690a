package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	clientName = "Ledger"
	language   = "en"
)

var countryCodes = []string{"US", "CA"}

// Client handles integration with Plaid's REST API
type Client struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client
	log      *logrus.Logger
}

// NewClient initializes a new Plaid client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:  cfg.PlaidURL,
		clientID: cfg.PlaidClientID,
		secret:   cfg.PlaidSecret,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

// Error is an error response returned by the API.
type Error struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("plaid %s/%s (status %d): %s", e.ErrorType, e.ErrorCode, e.StatusCode, e.ErrorMessage)
}

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// post sends body merged with the API credentials and decodes the reply into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.ErrorCode == "" {
			apiErr.ErrorType = "API_ERROR"
			apiErr.ErrorCode = "UNEXPECTED_RESPONSE"
			apiErr.ErrorMessage = string(data)
		}
		c.log.WithFields(logrus.Fields{"path": path, "request_id": apiErr.RequestID}).
			Warnf("Plaid request failed: %s", apiErr.ErrorCode)
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type linkTokenRequest struct {
	credentials
	ClientName   string   `json:"client_name"`
	User         linkUser `json:"user"`
	Products     []string `json:"products"`
	CountryCodes []string `json:"country_codes"`
	Language     string   `json:"language"`
}

type linkUser struct {
	ClientUserID string `json:"client_user_id"`
}

// CreateLinkToken starts the bank linking flow for a user. accountID, when
// set, is folded into the client user id so the token is scoped to it.
func (c *Client) CreateLinkToken(ctx context.Context, ownerID int64, accountID *int64) (string, error) {
	userID := strconv.FormatInt(ownerID, 10)
	if accountID != nil {
		userID = fmt.Sprintf("%d-%d", ownerID, *accountID)
	}
	req := linkTokenRequest{
		credentials:  c.creds(),
		ClientName:   clientName,
		User:         linkUser{ClientUserID: userID},
		Products:     []string{"transactions"},
		CountryCodes: countryCodes,
		Language:     language,
	}
	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken trades the short-lived public token for an access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	req := struct {
		credentials
		PublicToken string `json:"public_token"`
	}{c.creds(), publicToken}
	var resp struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return "", "", fmt.Errorf("failed to exchange public token: %w", err)
	}
	return resp.AccessToken, resp.ItemID, nil
}

// GetInstitution looks up an institution's display name.
func (c *Client) GetInstitution(ctx context.Context, institutionID string) (*models.Institution, error) {
	req := struct {
		credentials
		InstitutionID string   `json:"institution_id"`
		CountryCodes  []string `json:"country_codes"`
	}{c.creds(), institutionID, countryCodes}
	var resp struct {
		Institution models.Institution `json:"institution"`
	}
	if err := c.post(ctx, "/institutions/get_by_id", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return &resp.Institution, nil
}

type account struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Mask      string `json:"mask"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Balances  struct {
		Available       json.Number `json:"available"`
		Current         json.Number `json:"current"`
		ISOCurrencyCode string      `json:"iso_currency_code"`
	} `json:"balances"`
}

// GetAccounts lists the sub-accounts under an item.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error) {
	req := struct {
		credentials
		AccessToken string `json:"access_token"`
	}{c.creds(), accessToken}
	var resp struct {
		Accounts []account `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/get", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	accounts := make([]models.ExternalAccount, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		ext := models.ExternalAccount{
			ID:       a.AccountID,
			Name:     a.Name,
			Mask:     a.Mask,
			Type:     a.Type,
			Subtype:  a.Subtype,
			Currency: a.Balances.ISOCurrencyCode,
		}
		ext.Available = nullDecimal(a.Balances.Available)
		ext.Current = nullDecimal(a.Balances.Current)
		accounts = append(accounts, ext)
	}
	return accounts, nil
}

func (c *Client) creds() credentials {
	return credentials{ClientID: c.clientID, Secret: c.secret}
}
