// Package modulerpc implements the signed, zstd-compressed HTTP transport used
// to call miner modules by address and key.
package modulerpc

import (
	"encoding/json"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	SignatureHeader string = "x-signature"
	KeyHeader       string = "x-key"
	TimestampHeader string = "x-timestamp"

	// Server defaults
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8000
	DefaultBodyLimit  = 4 * 1024 * 1024 // 4MB

	// Client defaults
	DefaultClientTimeout = 30 // seconds
)

// Address is a module's network location.
type Address struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Server represents a module server
type Server struct {
	App    *fiber.App
	config *ServerConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	BodyLimit int
	// OwnKey, when set, rejects requests addressed to a different module key.
	OwnKey string
}

// Request is the envelope posted to every method.
type Request[T any] struct {
	TargetKey string `json:"target_key"`
	Params    T      `json:"params"`
}

// StdResponse represents the standardized response structure
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

type rawResponse = StdResponse[json.RawMessage]

// RouterHandler handles one method call.
type RouterHandler[Req, Resp any] func(*fiber.Ctx, Req) (Resp, error)
