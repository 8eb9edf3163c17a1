package modulerpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/pkg/signature"
)

// ErrEmptyResponse is returned when a module answers with a null body.
var ErrEmptyResponse = errors.New("empty response body")

// bodyAPI keeps numbers inside untyped response fields as json.Number.
var bodyAPI = sonic.Config{UseNumber: true}.Froze()

// Client configuration
type ClientConfig struct {
	Timeout time.Duration
}

type Client struct {
	config      *ClientConfig
	restyClient *resty.Client
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	signer      signature.SignatureProvider
	now         func() time.Time
}

// NewClient creates a new module client signing requests with signer
func NewClient(config *ClientConfig, signer signature.SignatureProvider) (*Client, error) {
	if signer == nil {
		return nil, fmt.Errorf("signature provider cannot be nil")
	}
	if config == nil {
		config = &ClientConfig{}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout * time.Second
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept-Encoding", "zstd")

	// EncodeAll and DecodeAll are safe for concurrent use, so one pair serves
	// every in-flight call.
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Client{
		config:      config,
		restyClient: restyClient,
		encoder:     encoder,
		decoder:     decoder,
		signer:      signer,
		now:         time.Now,
	}, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

func (c *Client) buildHeaders(timestamp int64, sig string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"Content-Encoding": "zstd",
		"Accept-Encoding":  "zstd",
		KeyHeader:          c.signer.Address(),
		TimestampHeader:    strconv.FormatInt(timestamp, 10),
		SignatureHeader:    sig,
	}
}

// Call posts params to http://addr/method and decodes the response body into
// out. The context bounds the whole exchange.
func (c *Client) Call(ctx context.Context, addr Address, targetKey, method string, params, out any) error {
	if out == nil {
		return fmt.Errorf("invalid response: must be a non-nil pointer")
	}

	body, err := sonic.Marshal(Request[any]{TargetKey: targetKey, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	timestamp := c.now().Unix()
	sig, err := signature.SignRequest(c.signer, timestamp, body)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	endpoint := "http://" + addr.String() + "/" + method
	log.Trace().
		Str("endpoint", endpoint).
		Str("target_key", targetKey).
		Int("body_size", len(body)).
		Msg("calling module")

	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeaders(c.buildHeaders(timestamp, sig)).
		SetBody(c.encoder.EncodeAll(body, nil)).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	responseBody := resp.Body()
	if resp.Header().Get("Content-Encoding") == "zstd" {
		responseBody, err = c.decoder.DecodeAll(responseBody, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress response: %w", err)
		}
	}

	if resp.IsError() {
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode(), string(responseBody))
	}

	var std rawResponse
	if err := sonic.Unmarshal(responseBody, &std); err != nil {
		return fmt.Errorf("failed to unmarshal StdResponse: %w", err)
	}
	if std.Error != nil {
		return fmt.Errorf("server error: %s", *std.Error)
	}
	if len(std.Body) == 0 || string(std.Body) == "null" {
		return ErrEmptyResponse
	}
	if err := bodyAPI.Unmarshal(std.Body, out); err != nil {
		return fmt.Errorf("failed to unmarshal body: %w", err)
	}
	return nil
}
