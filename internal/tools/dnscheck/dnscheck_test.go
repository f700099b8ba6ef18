package dnscheck

import (
	"context"
	"reflect"
	"testing"

	"github.com/haasonsaas/netprobe/internal/envelope"
)

func TestGroupAnswersSingleGroup(t *testing.T) {
	perServer := map[string][]string{
		"Google":     {"1.2.3.4", "5.6.7.8"},
		"Cloudflare": {"5.6.7.8", "1.2.3.4"},
		"Quad9":      {"1.2.3.4", "5.6.7.8"},
	}
	groups := GroupAnswers(perServer)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1 (order must not matter)", len(groups))
	}
	servers := groups["1.2.3.4,5.6.7.8"]
	want := []string{"Cloudflare", "Google", "Quad9"}
	if !reflect.DeepEqual(servers, want) {
		t.Errorf("servers = %v, want %v", servers, want)
	}
}

func TestGroupAnswersSplitPropagation(t *testing.T) {
	perServer := map[string][]string{
		"Google":     {"1.2.3.4"},
		"Cloudflare": {"9.9.9.9"},
		"Quad9":      nil,
	}
	groups := GroupAnswers(perServer)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if _, ok := groups["(no answer)"]; !ok {
		t.Error("empty answers must bucket under (no answer)")
	}
}

func TestExtractAnswersMX(t *testing.T) {
	out := "10 aspmx.l.google.com.\n20 alt1.aspmx.l.google.com.\n"
	answers := extractAnswers(out, "MX")
	if len(answers) != 2 {
		t.Fatalf("answers = %v", answers)
	}
	if answers[0] != "10 aspmx.l.google.com." {
		t.Errorf("first = %q", answers[0])
	}
}

func TestExtractAnswersSkipsNslookupPreamble(t *testing.T) {
	out := "Server:\t192.168.1.1\nAddress:\t192.168.1.1#53\n\nexample.com\tmail exchanger = 10 mx.example.com.\n"
	answers := extractAnswers(out, "MX")
	if len(answers) != 1 {
		t.Fatalf("answers = %v", answers)
	}
}

func TestResolveHostnameValidation(t *testing.T) {
	res := ResolveHostname(context.Background(), map[string]any{})
	if res.Success || res.Code != envelope.CodeMissingParameter {
		t.Errorf("missing target = %+v", res)
	}
}

func TestReverseDNSLookupValidation(t *testing.T) {
	res := ReverseDNSLookup(context.Background(), map[string]any{"target": "not-an-ip"})
	if res.Success || res.Code != envelope.CodeInvalidTarget {
		t.Errorf("bad target = %+v", res)
	}
	res = ReverseDNSLookup(context.Background(), map[string]any{})
	if res.Success || res.Code != envelope.CodeMissingParameter {
		t.Errorf("missing target = %+v", res)
	}
}

func TestRootServerTableComplete(t *testing.T) {
	if len(rootServers) != 13 {
		t.Errorf("root servers = %d, want 13", len(rootServers))
	}
	for name, ip := range rootServers {
		if name == "" || ip == "" {
			t.Errorf("incomplete entry %q -> %q", name, ip)
		}
	}
}
