package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/election-scraper/internal/usecase"
)

const indexHTML = `<html><body><table id="ps311_t1">
<tr><th>Obec číslo</th><th>Obec název</th><th>Výběr okrsku</th></tr>
<tr><td><a href="ps311?xobec=529303&amp;xvyber=1">529303</a></td><td>Test Obec</td><td>X</td></tr>
<tr><td><a href="ps311?xobec=529311&amp;xvyber=1">529311</a></td><td>Druhá Obec</td><td>X</td></tr>
<tr><td><a href="ps311?xobec=529320&amp;xvyber=1">529320</a></td><td>Chybějící</td><td>X</td></tr>
</table></body></html>`

func detailHTML(registered, issued, valid string, parties ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><table id="ps311_t1"><tr><th>Okrsky</th></tr>
<tr><td>1</td><td>1</td><td>100,00</td><td>%s</td><td>%s</td><td>80,00</td><td>%s</td><td>99,0</td></tr></table>`,
		registered, issued, valid)
	b.WriteString(`<table><tr><th>Strana</th><th>Platné hlasy</th></tr>`)
	for i := 0; i+1 < len(parties); i += 2 {
		fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td></tr>`, i/2+1, parties[i], parties[i+1])
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func newElectionServer(t *testing.T, index string) *httptest.Server {
	t.Helper()
	details := map[string]string{
		"529303": detailHTML("1 000", "800", "750", "Strana A", "500", "Strana B", "250"),
		"529311": detailHTML("10", "9", "9", "Strana C", "9"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/pls/ps32", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(index))
	})
	mux.HandleFunc("/pls/ps311", func(w http.ResponseWriter, r *http.Request) {
		page, ok := details[r.URL.Query().Get("xobec")]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (int, string, error) {
	t.Helper()
	cmd := NewRootCmd(viper.New())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return exitCode(err), out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "usage", err: &usageError{msg: "usage"}, want: exitFailure},
		{name: "unreachable", err: &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrSourceUnreachable}, want: exitUnreachable},
		{name: "no entities", err: &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrNoEntities}, want: exitNoEntities},
		{name: "wrapped", err: fmt.Errorf("run: %w", &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrNoEntities}), want: exitNoEntities},
		{name: "other", err: errors.New("disk full"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRunRequiresTwoArguments(t *testing.T) {
	t.Chdir(t.TempDir())

	code, _, err := execute(t, "run", "https://example.test/index")

	assert.Equal(t, exitFailure, code)
	var usage *usageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Error(), "<index-url> <output-file>")
}

func TestRunUnknownFlagIsUsageError(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "run", "--no-such-flag", "a", "b")

	var usage *usageError
	assert.ErrorAs(t, err, &usage)
}

func TestRunWritesCSV(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := newElectionServer(t, indexHTML)
	out := filepath.Join(dir, "results.csv")
	db := filepath.Join(dir, "runs.db")

	code, stdout, err := execute(t, "run",
		"--log-level", "error",
		"--rate", "100",
		"--base-url", srv.URL+"/pls/",
		"--sqlite", db,
		srv.URL+"/pls/ps32", out)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\ufeff"+
		"code;name;registered;issued;valid;Strana A;Strana B;Strana C\n"+
		"529303;Test Obec;1000;800;750;500;250;0\n"+
		"529311;Druhá Obec;10;9;9;0;0;9\n",
		string(data))
	assert.Contains(t, stdout, "Processed 2 of 3 municipalities")
	assert.Contains(t, stdout, "skipped 529320 Chybějící")
	assert.FileExists(t, db)
}

func TestRunFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := newElectionServer(t, indexHTML)
	out := filepath.Join(dir, "results.xlsx")

	_, _, err := execute(t, "run", "--log-level", "error", "--rate", "100", "--base-url", srv.URL+"/pls/", srv.URL+"/pls/ps32", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")
}

func TestRunNoEntities(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := newElectionServer(t, `<html><body><p>nothing here</p></body></html>`)
	out := filepath.Join(dir, "results.csv")

	code, _, err := execute(t, "run", "--log-level", "error", srv.URL+"/pls/ps32", out)

	assert.ErrorIs(t, err, usecase.ErrNoEntities)
	assert.Equal(t, exitNoEntities, code)
	assert.NoFileExists(t, out)
}

func TestRunIndexUnreachable(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	out := filepath.Join(dir, "results.csv")

	code, _, err := execute(t, "run", "--log-level", "error", "--timeout", "2", url+"/pls/ps32", out)

	assert.ErrorIs(t, err, usecase.ErrSourceUnreachable)
	assert.Equal(t, exitUnreachable, code)
	assert.NoFileExists(t, out)
}

func TestRunUnknownFetchMode(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	code, _, err := execute(t, "run", "--fetch-mode", "carrier-pigeon", "https://example.test/ps32", filepath.Join(dir, "out.csv"))

	var usage *usageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, exitFailure, code)
}
