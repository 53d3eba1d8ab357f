package idaas

import (
	"fmt"
	"runtime"
	"sync"
)

// Version is the client library version reported in the User-Agent header.
const Version = "1.0.0"

var (
	userAgentOnce  sync.Once
	userAgentValue string
)

// UserAgent returns the User-Agent header value identifying this client,
// assembled once per process.
func UserAgent() string {
	userAgentOnce.Do(func() {
		userAgentValue = fmt.Sprintf("go-idaas/%s Go/%s OS(%s; %s)",
			Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	})
	return userAgentValue
}
