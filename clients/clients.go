// Package clients holds the HTTP adapters for the external diarization,
// voice-embedding and prosody services.
package clients

import (
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

func NewHTTP() *HTTP { return &HTTP{c: &http.Client{Timeout: 120 * time.Second}} }
