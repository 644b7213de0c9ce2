package config

import "testing"

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid listen", Config{Role: RoleListen, Bind: "127.0.0.1:9000"}, false},
		{"valid dial", Config{Role: RoleDial, Bind: "127.0.0.1:0", Remote: "127.0.0.1:9000"}, false},
		{"missing role", Config{Bind: "127.0.0.1:9000"}, true},
		{"unknown role", Config{Role: "server", Bind: "127.0.0.1:9000"}, true},
		{"missing bind", Config{Role: RoleListen}, true},
		{"bad bind", Config{Role: RoleListen, Bind: "not-an-address"}, true},
		{"dial without remote", Config{Role: RoleDial, Bind: "127.0.0.1:0"}, true},
		{"bad remote", Config{Role: RoleDial, Bind: "127.0.0.1:0", Remote: ":::"}, true},
		{"negative watchdog", Config{Role: RoleListen, Bind: "127.0.0.1:9000", WatchdogSec: -1}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
