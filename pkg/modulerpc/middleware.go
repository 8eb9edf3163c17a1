package modulerpc

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/pkg/signature"
)

func isWhitelisted(path string, whitelistedRoutes []string) bool {
	for _, route := range whitelistedRoutes {
		if path == route {
			return true
		}
	}
	return false
}

// ZstdMiddleware decompresses zstd request bodies and compresses responses
// for clients that accept zstd.
func ZstdMiddleware(whitelistedRoutes []string) fiber.Handler {
	decoder, _ := zstd.NewReader(nil)
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

	return func(c *fiber.Ctx) error {
		if isWhitelisted(c.Path(), whitelistedRoutes) {
			return c.Next()
		}

		if strings.ToLower(c.Get(fiber.HeaderContentEncoding)) == "zstd" {
			if body := c.Request().Body(); len(body) > 0 {
				decompressed, err := decoder.DecodeAll(body, nil)
				if err != nil {
					log.Err(err).Msg("Failed to decompress request")
					return c.Status(fiber.StatusBadRequest).JSON(createResponse(
						map[string]any{},
						fmt.Errorf("failed to decompress zstd data: %w", err),
					))
				}
				c.Request().SetBody(decompressed)
				c.Request().Header.Del(fiber.HeaderContentEncoding)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") {
			if responseBody := c.Response().Body(); len(responseBody) > 0 {
				compressed := encoder.EncodeAll(responseBody, nil)
				c.Response().SetBody(compressed)
				c.Set(fiber.HeaderContentEncoding, "zstd")
				c.Set(fiber.HeaderContentLength, strconv.Itoa(len(compressed)))
			}
		}
		return nil
	}
}

// SignatureMiddleware verifies x-signature over x-timestamp and the request body.
func SignatureMiddleware(verifier signature.SignatureVerifier, whitelistedRoutes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isWhitelisted(c.Path(), whitelistedRoutes) {
			return c.Next()
		}

		sig := c.Get(SignatureHeader)
		key := c.Get(KeyHeader)
		ts := c.Get(TimestampHeader)
		if sig == "" || key == "" || ts == "" {
			err := fmt.Errorf("%s, missing headers, expected: %s, %s, %s",
				http.StatusText(http.StatusBadRequest), SignatureHeader, KeyHeader, TimestampHeader)
			return c.Status(fiber.StatusBadRequest).JSON(createResponse(map[string]any{}, err))
		}

		timestamp, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(
				createResponse(map[string]any{}, fmt.Errorf("invalid %s: %w", TimestampHeader, err)))
		}

		ok, err := signature.VerifyRequest(verifier, timestamp, c.Body(), sig, key, time.Now())
		if err != nil || !ok {
			if err == nil {
				err = fmt.Errorf("%s due to invalid signature", http.StatusText(http.StatusForbidden))
			}
			return c.Status(fiber.StatusForbidden).JSON(createResponse(map[string]any{}, err))
		}

		log.Trace().Str("key", key).Str("path", c.Path()).Msg("Verified signature successfully")
		return c.Next()
	}
}
