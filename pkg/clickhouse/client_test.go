package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func TestOptions(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddrs("ch1:9000", "ch2:9000"),
		WithDatabase("candlenet"),
		WithCredentials("default", "secret"),
		WithMaxExecutionTime(time.Minute),
	} {
		opt(cfg)
	}
	o := Options(cfg)
	if len(o.Addr) != 2 || o.Addr[1] != "ch2:9000" {
		t.Fatalf("unexpected addrs %v", o.Addr)
	}
	if o.Auth.Database != "candlenet" || o.Auth.Username != "default" || o.Auth.Password != "secret" {
		t.Fatalf("unexpected auth %+v", o.Auth)
	}
	if o.Protocol != clickhouse.Native {
		t.Fatalf("expected native protocol")
	}
	if o.Settings["max_execution_time"] != 60 {
		t.Fatalf("unexpected settings %v", o.Settings)
	}
	if o.DialTimeout != 5*time.Second {
		t.Fatalf("expected default dial timeout, got %s", o.DialTimeout)
	}
}

func TestOptionsHTTP(t *testing.T) {
	cfg := defaultClientConfig()
	WithHTTP(true)(cfg)
	if o := Options(cfg); o.Protocol != clickhouse.HTTP || o.Settings != nil {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected error without addresses")
	}
}
