package secrets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	resource := "projects/test/secrets/paytr-merchant-key/versions/latest"
	client.values[resource] = "remote-secret"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		got, err := fetcher.Resolve(ctx, "secret://paytr-merchant-key")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if got != "remote-secret" {
			t.Fatalf("expected remote-secret, got %s", got)
		}
	}
	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected remote fetch once, got %d", calls)
	}
}

func TestResolveHonoursVersionAndProjectOverride(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values["projects/other/secrets/jwt/versions/3"] = "v3"

	fetcher, _ := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"))
	got, err := fetcher.ResolveSecret(ctx, "secret://jwt?version=3&project=other")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "v3" {
		t.Fatalf("expected v3, got %s", got)
	}
}

func TestResolveFallsBackWhenSecretManagerUnavailable(t *testing.T) {
	ctx := context.Background()

	fallbackPath := filepath.Join(t.TempDir(), "secrets.yaml")
	content := "secret://paytr-merchant-key: local-secret\nshipink-api-key: bare-secret\n"
	if err := os.WriteFile(fallbackPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	client := newFakeSecretClient()
	client.errors["projects/test/secrets/paytr-merchant-key/versions/latest"] = status.Error(codes.PermissionDenied, "denied")
	client.errors["projects/test/secrets/shipink-api-key/versions/latest"] = status.Error(codes.Unavailable, "down")

	fetcher, _ := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(fallbackPath))

	if got, err := fetcher.Resolve(ctx, "secret://paytr-merchant-key"); err != nil || got != "local-secret" {
		t.Fatalf("expected local-secret, got %q (%v)", got, err)
	}
	if got, err := fetcher.Resolve(ctx, "secret://shipink-api-key"); err != nil || got != "bare-secret" {
		t.Fatalf("expected bare-secret, got %q (%v)", got, err)
	}
}

func TestResolveSurfacesNonFallbackErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.errors["projects/test/secrets/jwt/versions/latest"] = status.Error(codes.InvalidArgument, "bad name")

	fetcher, _ := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(""))
	if _, err := fetcher.Resolve(ctx, "secret://jwt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveWithoutProjectUsesFallbackOnly(t *testing.T) {
	ctx := context.Background()
	fallbackPath := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(fallbackPath, []byte("\"sm://resend-key\": re_123\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fetcher, err := NewFetcher(ctx, WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://resend-key")
	if err != nil || got != "re_123" {
		t.Fatalf("expected re_123, got %q (%v)", got, err)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	resource := "projects/test/secrets/jwt/versions/latest"
	client.values[resource] = "first"

	fetcher, _ := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"))
	if _, err := fetcher.Resolve(ctx, "secret://jwt"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	client.set(resource, "second")
	fetcher.Invalidate("secret://jwt")

	got, err := fetcher.Resolve(ctx, "secret://jwt")
	if err != nil || got != "second" {
		t.Fatalf("expected second, got %q (%v)", got, err)
	}
}

func TestParseReferenceRejectsOtherSchemes(t *testing.T) {
	if _, err := parseReference("https://example.com/secret"); err == nil {
		t.Fatal("expected scheme error")
	}
	if _, err := parseReference("secret://"); err == nil {
		t.Fatal("expected missing name error")
	}
}

type fakeSecretClient struct {
	mu      sync.Mutex
	values  map[string]string
	errors  map[string]error
	counter map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values:  make(map[string]string),
		errors:  make(map[string]error),
		counter: make(map[string]int),
	}
}

func (f *fakeSecretClient) set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := req.GetName()
	f.counter[name]++
	if err, ok := f.errors[name]; ok && err != nil {
		return nil, err
	}
	if value, ok := f.values[name]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{
			Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
		}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeSecretClient) Close() error { return nil }

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter[name]
}
