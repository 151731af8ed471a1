package guard

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		hasCredential bool
		wantRedirect  string
	}{
		{"anonymous to protected detail", "/resena/5", false, "/login"},
		{"anonymous to home", "/", false, "/login"},
		{"anonymous to create", "/crear-resena", false, "/login"},
		{"anonymous to unknown path", "/mis-resenas", false, "/login"},
		{"anonymous to login", "/login", false, ""},
		{"anonymous to callback", "/auth/callback", false, ""},
		{"authenticated to login", "/login", true, "/"},
		{"authenticated to login with trailing slash", "/login/", true, "/"},
		{"authenticated to detail", "/resena/5", true, ""},
		{"authenticated to callback", "/auth/callback", true, ""},
		{"authenticated to home", "/", true, ""},
		{"empty path is home", "", false, "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.path, tt.hasCredential)
			if d.Redirect != tt.wantRedirect {
				t.Errorf("Decide(%q, %v).Redirect = %q, want %q", tt.path, tt.hasCredential, d.Redirect, tt.wantRedirect)
			}
			if d.Allowed() != (tt.wantRedirect == "") {
				t.Errorf("Allowed() = %v, want %v", d.Allowed(), tt.wantRedirect == "")
			}
		})
	}
}

func TestIsPublic(t *testing.T) {
	for path, want := range map[string]bool{
		"/login":          true,
		"/auth/callback":  true,
		"/auth/callback/": true,
		"/":               false,
		"/resena/1":       false,
		"/auth/other":     false,
	} {
		if got := IsPublic(path); got != want {
			t.Errorf("IsPublic(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRoutes_PublicFlagMatchesDecision(t *testing.T) {
	for _, r := range Routes {
		if r.RequiresAuth == IsPublic(r.Path) {
			t.Errorf("route %s: RequiresAuth=%v but IsPublic=%v", r.Name, r.RequiresAuth, IsPublic(r.Path))
		}
	}
}
