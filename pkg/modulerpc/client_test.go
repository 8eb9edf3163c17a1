package modulerpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, s *Server) Address {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() { s.Shutdown() })
	return Address{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

func TestClientCall(t *testing.T) {
	p := newProvider(t)
	c, err := NewClient(&ClientConfig{Timeout: 5 * time.Second}, p)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	s := newEchoServer(&ServerConfig{OwnKey: "5Miner"}, nil)
	ServeMethod(s, "empty", func(c *fiber.Ctx, req echoRequest) (*echoResponse, error) {
		return nil, nil
	})
	ServeMethod(s, "slow", func(c *fiber.Ctx, req echoRequest) (echoResponse, error) {
		time.Sleep(500 * time.Millisecond)
		return echoResponse{Echo: "late"}, nil
	})
	ServeMethod(s, "balance", func(c *fiber.Ctx, req echoRequest) (map[string]any, error) {
		return map[string]any{"output": map[string]any{"balance": uint64(1234567890123456789)}}, nil
	})
	addr := startServer(t, s)

	t.Run("round trip", func(t *testing.T) {
		var out echoResponse
		err := c.Call(context.Background(), addr, "5Miner", "echo", echoRequest{Message: "ping"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "ping", out.Echo)
	})

	t.Run("large integers keep their digits", func(t *testing.T) {
		var out struct {
			Output map[string]any `json:"output"`
		}
		err := c.Call(context.Background(), addr, "5Miner", "balance", echoRequest{}, &out)
		require.NoError(t, err)
		assert.Equal(t, json.Number("1234567890123456789"), out.Output["balance"])
	})

	t.Run("server error surfaces", func(t *testing.T) {
		var out echoResponse
		err := c.Call(context.Background(), addr, "5Miner", "echo", echoRequest{Message: "fail"}, &out)
		assert.Error(t, err)
	})

	t.Run("wrong target", func(t *testing.T) {
		var out echoResponse
		err := c.Call(context.Background(), addr, "5Someone", "echo", echoRequest{Message: "ping"}, &out)
		assert.Error(t, err)
	})

	t.Run("null body", func(t *testing.T) {
		var out echoResponse
		err := c.Call(context.Background(), addr, "5Miner", "empty", echoRequest{}, &out)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		var out echoResponse
		err := c.Call(ctx, addr, "5Miner", "slow", echoRequest{}, &out)
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		ln.Close()

		var out echoResponse
		err = c.Call(context.Background(), Address{Host: "127.0.0.1", Port: port}, "5Miner", "echo", echoRequest{}, &out)
		assert.Error(t, err)
	})
}

func TestNewClient_RequiresSigner(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)
}
