package platform

import (
	"net"
	"testing"
)

func TestIsPrivateIPDetectsLoopback(t *testing.T) {
	if !isPrivateIP(net.ParseIP("127.0.0.1")) {
		t.Fatal("expected loopback to be detected as private")
	}
}

func TestIsPrivateIPDetectsRFC1918(t *testing.T) {
	cases := []string{"10.0.0.1", "172.16.0.1", "192.168.1.1"}
	for _, ip := range cases {
		if !isPrivateIP(net.ParseIP(ip)) {
			t.Errorf("expected %s to be detected as private", ip)
		}
	}
}

func TestIsPrivateIPDetectsLinkLocal(t *testing.T) {
	if !isPrivateIP(net.ParseIP("169.254.1.1")) {
		t.Fatal("expected link-local to be detected as private")
	}
}

func TestIsPrivateIPAllowsPublicIP(t *testing.T) {
	if isPrivateIP(net.ParseIP("8.8.8.8")) {
		t.Fatal("expected public IP to not be flagged as private")
	}
}

func TestIsPrivateIPDetectsUnspecified(t *testing.T) {
	if !isPrivateIP(net.ParseIP("0.0.0.0")) {
		t.Fatal("expected unspecified address to be detected as private")
	}
}
