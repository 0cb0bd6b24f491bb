package security

import "testing"

func TestCheckURL(t *testing.T) {
	t.Parallel()

	g := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "public http", url: "http://example.com/article", wantErr: false},
		{name: "public https", url: "https://finance.example.com/news/1", wantErr: false},
		{name: "public IP", url: "http://93.184.216.34/", wantErr: false},

		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/x", wantErr: true},
		{name: "data scheme", url: "data:text/html,hi", wantErr: true},
		{name: "empty host", url: "http:///path", wantErr: true},
		{name: "not a url", url: "://bad", wantErr: true},

		{name: "localhost", url: "http://localhost:8080/admin", wantErr: true},
		{name: "localhost mixed case", url: "http://LocalHost/", wantErr: true},
		{name: "loopback v4", url: "http://127.0.0.1/", wantErr: true},
		{name: "loopback high octet", url: "http://127.8.8.8/", wantErr: true},
		{name: "loopback v6", url: "http://[::1]/", wantErr: true},
		{name: "mapped loopback", url: "http://[::ffff:127.0.0.1]/", wantErr: true},
		{name: "unspecified", url: "http://0.0.0.0/", wantErr: true},

		{name: "rfc1918 class A", url: "http://10.0.0.5/", wantErr: true},
		{name: "rfc1918 class B", url: "http://172.16.1.1/", wantErr: true},
		{name: "rfc1918 class C", url: "http://192.168.1.1/router", wantErr: true},
		{name: "ipv6 ULA", url: "http://[fd00::1]/", wantErr: true},

		{name: "cloud metadata IP", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "gcp metadata host", url: "http://metadata.google.internal/computeMetadata/v1/", wantErr: true},
		{name: "link local v6", url: "http://[fe80::1]/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := g.CheckURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("CheckURL(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}

func TestAllowLoopback(t *testing.T) {
	t.Parallel()

	g := NewURLGuard()
	g.AllowLoopback()

	for _, u := range []string{"http://127.0.0.1:8080/", "http://localhost:3000/api", "http://[::1]/"} {
		if err := g.CheckURL(u); err != nil {
			t.Errorf("CheckURL(%q) with loopback allowed = %v, want nil", u, err)
		}
	}

	// Private and metadata ranges stay blocked.
	for _, u := range []string{"http://192.168.1.1/", "http://169.254.169.254/"} {
		if err := g.CheckURL(u); err == nil {
			t.Errorf("CheckURL(%q) = nil, want error", u)
		}
	}
}

func FuzzCheckURL(f *testing.F) {
	f.Add("http://example.com")
	f.Add("file:///etc/passwd")
	f.Add("http://[::1]:80/")
	f.Add("")
	f.Add("http://169.254.169.254")

	g := NewURLGuard()
	f.Fuzz(func(t *testing.T, raw string) {
		_ = g.CheckURL(raw) // must not panic
	})
}
