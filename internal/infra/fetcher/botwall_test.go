package fetcher

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		outcome *Outcome
		want    Classification
	}{
		{
			"plain 200 page",
			&Outcome{StatusCode: 200, Body: []byte("<title>fine</title>")},
			Usable,
		},
		{
			"nil outcome",
			nil,
			Blocked,
		},
		{
			"403 status",
			&Outcome{StatusCode: 403, Body: []byte("<title>anything</title>")},
			Blocked,
		},
		{
			"503 status",
			&Outcome{StatusCode: 503, Body: []byte("")},
			Blocked,
		},
		{
			"202 interstitial",
			&Outcome{StatusCode: 202, Body: []byte("queued")},
			Blocked,
		},
		{
			"just a moment phrase, any case",
			&Outcome{StatusCode: 200, Body: []byte("<title>Just a Moment...</title>")},
			Blocked,
		},
		{
			"checking your browser",
			&Outcome{StatusCode: 200, Body: []byte("Checking your browser before accessing")},
			Blocked,
		},
		{
			"challenge cookie marker is case-sensitive",
			&Outcome{StatusCode: 200, Body: []byte(`window._cf_chl_opt = {}`)},
			Blocked,
		},
		{
			"uppercased marker does not match",
			&Outcome{StatusCode: 200, Body: []byte(`CF_CHL_ is not the cookie`)},
			Usable,
		},
		{
			"incapsula resource",
			&Outcome{StatusCode: 200, Body: []byte(`src="/_Incapsula_Resource?x=1"`)},
			Blocked,
		},
		{
			"cloudflare and ray id together",
			&Outcome{StatusCode: 200, Body: []byte("Cloudflare ... Ray ID: abc123")},
			Blocked,
		},
		{
			"cloudflare alone is not enough",
			&Outcome{StatusCode: 200, Body: []byte("we use cloudflare as a CDN")},
			Usable,
		},
		{
			"ordinary 404 is usable downstream",
			&Outcome{StatusCode: 404, Body: []byte("<title>Not Found</title>")},
			Usable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.outcome); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
