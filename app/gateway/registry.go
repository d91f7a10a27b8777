package gateway

import (
	"errors"
	"sort"
	"strings"
)

var ErrGatewayNotSupported = errors.New("gateway is not supported")

type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	items := make(map[string]Gateway, len(gateways))
	for _, g := range gateways {
		items[strings.ToLower(g.Code())] = g
	}
	return &Registry{gateways: items}
}

func (r *Registry) Get(code string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrGatewayNotSupported
	}
	return g, nil
}

func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.gateways))
	for code := range r.gateways {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
