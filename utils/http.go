package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for catalog downloads.
var HTTPClient = &http.Client{
	Timeout: 60 * time.Second,
}
