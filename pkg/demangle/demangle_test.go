package demangle

import (
	"context"
	"testing"
)

func TestSymbol(t *testing.T) {
	tcs := map[string]string{
		"_ZN3Foo3barEv":    "Foo::bar()",
		"__ZN3Foo3barEv":   "Foo::bar()",
		"ZN3Foo3barEv":     "Foo::bar()",
		"_ZdlPv":           "operator delete(void*)",
		"main":             "main",
		"  _ZN3Foo3barEv ": "Foo::bar()",
		"":                 "",
	}

	for in, want := range tcs {
		if got := Symbol(in); got != want {
			t.Errorf("Symbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNativeDemangle(t *testing.T) {
	got, err := Native{}.Demangle(context.Background(), "_ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv")
	if err != nil {
		t.Fatalf("Demangle returned error: %v", err)
	}
	if want := "AsyncUploadManager::AsyncResourceUploadBlocking()"; got != want {
		t.Fatalf("Demangle() = %q, want %q", got, want)
	}
}
