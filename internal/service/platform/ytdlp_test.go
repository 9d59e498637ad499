package platform

import "testing"

func TestValidateURLForExecAcceptsPlainHTTPSURL(t *testing.T) {
	if err := validateURLForExec("https://www.youtube.com/watch?v=abc123&t=10"); err != nil {
		t.Fatalf("expected valid URL to pass, got %v", err)
	}
}

func TestValidateURLForExecRejectsEmpty(t *testing.T) {
	if err := validateURLForExec(""); err == nil {
		t.Fatal("expected empty URL to be rejected")
	}
}

func TestValidateURLForExecRejectsShellMetacharacters(t *testing.T) {
	cases := []string{
		"https://example.com/x;rm -rf /",
		"https://example.com/x|cat /etc/passwd",
		"https://example.com/$(whoami)",
		"https://example.com/`whoami`",
		"https://example.com/x{y}",
	}
	for _, c := range cases {
		if err := validateURLForExec(c); err == nil {
			t.Errorf("expected %q to be rejected", c)
		}
	}
}

func TestValidateURLForExecRejectsNonHTTPScheme(t *testing.T) {
	if err := validateURLForExec("ftp://example.com/file"); err == nil {
		t.Fatal("expected non-http(s) scheme to be rejected")
	}
}

func TestValidateURLForExecRejectsMissingHost(t *testing.T) {
	if err := validateURLForExec("https://"); err == nil {
		t.Fatal("expected missing host to be rejected")
	}
}

func TestValidateURLForExecRejectsNewlines(t *testing.T) {
	if err := validateURLForExec("https://example.com/x\nY"); err == nil {
		t.Fatal("expected embedded newline to be rejected")
	}
}

func TestValidateURLForExecAllowsOrdinaryQueryCharacters(t *testing.T) {
	if err := validateURLForExec("https://example.com/x?a=1&b=2#frag"); err != nil {
		t.Fatalf("expected ordinary query/fragment characters to be allowed, got %v", err)
	}
}

func TestValidateURLForExecRejectsOverlyLongURL(t *testing.T) {
	long := "https://example.com/"
	for len(long) < 2100 {
		long += "a"
	}
	if err := validateURLForExec(long); err == nil {
		t.Fatal("expected overly long URL to be rejected")
	}
}
