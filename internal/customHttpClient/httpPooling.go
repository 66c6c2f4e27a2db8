package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
)

// shared by the detector client and the model downloader so connections are reused
var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// GetClient returns a client on the pooled transport. A zero timeout means no client timeout.
func GetClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: customTransport, Timeout: timeout}
}
