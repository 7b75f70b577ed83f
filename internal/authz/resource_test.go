package authz

import (
	"context"
	"errors"
	"testing"
)

func testRequest(params map[string]string) *Request {
	return &Request{
		Context:   context.Background(),
		Principal: Principal{ID: "u-1", Role: RoleAdmin, TenantID: "t-1"},
		TenantID:  "t-1",
		Params:    params,
	}
}

func TestResolveResource_ExtractFunc(t *testing.T) {
	want := ResourceBatch("tpl-1", "tpl-2")
	var gotDescriptor Descriptor
	fn := ExtractFunc(func(req *Request, d Descriptor) (ResourceRef, error) {
		gotDescriptor = d
		return want, nil
	})

	d := Descriptor{
		Resource:            ResourceProductTemplate,
		Action:              ActionArchive,
		IsOwn:               func(*Request) bool { return true },
		ResourceFromContext: fn,
	}

	got, err := ResolveResource(d, testRequest(nil))
	if err != nil {
		t.Fatalf("ResolveResource() error = %v", err)
	}
	// The extractor output is used verbatim, bypassing the static resource.
	if !got.IsBatch() || len(got.Items()) != 2 || got.Items()[0] != "tpl-1" {
		t.Errorf("ResolveResource() = %+v, want %+v", got, want)
	}
	// The descriptor handed to the extractor has its function fields cleared.
	if gotDescriptor.ResourceFromContext != nil || gotDescriptor.IsOwn != nil {
		t.Error("extractor received descriptor with context functions attached")
	}
}

func TestResolveResource_DefaultExtractor(t *testing.T) {
	d := Descriptor{Resource: ResourceTenant, Action: ActionRead, ResourceFromContext: true}

	t.Run("id param wins", func(t *testing.T) {
		got, err := ResolveResource(d, testRequest(map[string]string{"id": "t-9"}))
		if err != nil {
			t.Fatalf("ResolveResource() error = %v", err)
		}
		if got.Single() != "t-9" {
			t.Errorf("got %v, want t-9", got.Single())
		}
	})

	t.Run("falls back to static resource", func(t *testing.T) {
		got, err := ResolveResource(d, testRequest(nil))
		if err != nil {
			t.Fatalf("ResolveResource() error = %v", err)
		}
		if got.Single() != ResourceTenant {
			t.Errorf("got %v, want %v", got.Single(), ResourceTenant)
		}
	})
}

func TestResolveResource_Static(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"nil", Descriptor{Resource: ResourceUser, Action: ActionRead}},
		{"false", Descriptor{Resource: ResourceUser, Action: ActionRead, ResourceFromContext: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveResource(tt.d, testRequest(map[string]string{"id": "ignored"}))
			if err != nil {
				t.Fatalf("ResolveResource() error = %v", err)
			}
			if got.Single() != ResourceUser {
				t.Errorf("got %v, want %v", got.Single(), ResourceUser)
			}
		})
	}
}

func TestResolveResource_ExtractorErrorPropagates(t *testing.T) {
	wantErr := errors.New("lookup timed out")
	d := Descriptor{
		Resource: ResourceUser,
		Action:   ActionRead,
		ResourceFromContext: ExtractFunc(func(*Request, Descriptor) (ResourceRef, error) {
			return ResourceRef{}, wantErr
		}),
	}
	if _, err := ResolveResource(d, testRequest(nil)); !errors.Is(err, wantErr) {
		t.Errorf("expected extractor error to propagate, got %v", err)
	}
}

func TestResolveResource_BadContextType(t *testing.T) {
	d := Descriptor{Resource: ResourceUser, Action: ActionRead, ResourceFromContext: 42}
	_, err := ResolveResource(d, testRequest(nil))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}
