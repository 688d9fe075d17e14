package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

// ProxyRewrite prefixes every request path with the path of proxyURL, so
// "/v1/client" sent through "https://app.example.com/__auth" becomes
// "/__auth/v1/client". Applying it twice has the same effect as once.
func ProxyRewrite(proxyURL string) (Preparer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	prefix := strings.TrimSuffix(u.Path, "/")

	return PrepareFunc(func(_ context.Context, req *Request) error {
		req.Path = PrefixPath(prefix, req.Path)
		return nil
	}), nil
}

// PrefixPath joins prefix and p unless p already starts with prefix.
func PrefixPath(prefix, p string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
		return p
	}
	return prefix + p
}

// FormEncoding encodes Request.Body as application/x-www-form-urlencoded.
// Structs are encoded through their `url` tags, url.Values are copied as is.
func FormEncoding() Preparer {
	return PrepareFunc(func(_ context.Context, req *Request) error {
		switch body := req.Body.(type) {
		case nil:
			return nil
		case url.Values:
			req.SetForm(cloneValues(body))
			return nil
		default:
			v, err := query.Values(body)
			if err != nil {
				return fmt.Errorf("encode form body: %w", err)
			}
			req.SetForm(v)
			return nil
		}
	})
}
