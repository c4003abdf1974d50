package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxGrantResponseBytes = 1 << 20

// GrantExchanger turns an OAuth access grant into S3 credentials
type GrantExchanger interface {
	Exchange(ctx context.Context, accessGrant string) (Credentials, error)
}

// StorXGrantExchanger calls the StorX auth API's /access endpoint
type StorXGrantExchanger struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewStorXGrantExchanger(baseURL string) *StorXGrantExchanger {
	return &StorXGrantExchanger{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type accessRequest struct {
	AccessGrant string `json:"access_grant"`
	Public      bool   `json:"public"`
}

// accessResponse accepts every field spelling the auth API has used
type accessResponse struct {
	AccessKeyIDSnake     string `json:"access_key_id"`
	AccessKeyIDCamel     string `json:"accessKeyId"`
	AccessKey            string `json:"accessKey"`
	SecretKeySnake       string `json:"secret_key"`
	SecretAccessKeySnake string `json:"secret_access_key"`
	SecretAccessKeyCamel string `json:"secretAccessKey"`
	SecretKeyCamel       string `json:"secretKey"`
	Endpoint             string `json:"endpoint"`
	Gateway              string `json:"gateway"`
}

func (r accessResponse) credentials() (Credentials, error) {
	creds := Credentials{
		AccessKey: firstNonEmpty(r.AccessKeyIDSnake, r.AccessKeyIDCamel, r.AccessKey),
		SecretKey: firstNonEmpty(r.SecretKeySnake, r.SecretAccessKeySnake, r.SecretAccessKeyCamel, r.SecretKeyCamel),
		Endpoint:  firstNonEmpty(r.Endpoint, r.Gateway),
	}
	if creds.AccessKey == "" || creds.SecretKey == "" || creds.Endpoint == "" {
		return Credentials{}, fmt.Errorf("auth API response is missing access key, secret or endpoint")
	}
	return creds, nil
}

func (e *StorXGrantExchanger) Exchange(ctx context.Context, accessGrant string) (Credentials, error) {
	if strings.TrimSpace(accessGrant) == "" {
		return Credentials{}, fmt.Errorf("access grant is required")
	}

	body, err := json.Marshal(accessRequest{AccessGrant: accessGrant, Public: false})
	if err != nil {
		return Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/access", bytes.NewReader(body))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return Credentials{}, &TransportError{Op: "grant exchange", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGrantResponseBytes))
	if err != nil {
		return Credentials{}, &TransportError{Op: "grant exchange", Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return Credentials{}, fmt.Errorf("failed to get S3 credentials: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed accessResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode auth API response: %w", err)
	}
	return parsed.credentials()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
