package headers

import (
	http "github.com/bogdanfinn/fhttp"
)

const (
	contentType = "application/json"
	accept      = "application/json"
)

var headerOrder = []string{
	"Authorization",
	"Content-Type",
	"User-Agent",
	"Accept",
}

// Map returns the header set sent with both the session and ping requests.
func Map(token, userAgent string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  contentType,
		"User-Agent":    userAgent,
		"Accept":        accept,
	}
}

// Build returns the same headers as Map, in a fixed wire order.
func Build(token, userAgent string) http.Header {
	h := http.Header{}
	for k, v := range Map(token, userAgent) {
		h.Set(k, v)
	}
	h[http.HeaderOrderKey] = headerOrder
	return h
}
