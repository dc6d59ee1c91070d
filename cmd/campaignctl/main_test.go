package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/campaignadmin/internal/model"
)

func env(addr string) func(string) string {
	return func(key string) string {
		if key == "CAMPAIGNADMIN_ADDR" {
			return addr
		}
		return ""
	}
}

func TestPublishCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/campaigns/publish", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Diwali", r.FormValue("name"))
		require.Equal(t, model.CampaignTypeOneTime, r.FormValue("type"))
		require.JSONEq(t, `{"expiryDays":30}`, r.FormValue("burnRules"))

		file, header, err := r.FormFile("csvFile")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "users.csv", header.Filename)
		data, _ := io.ReadAll(file)
		require.Equal(t, "partner_user_id\nu1\n", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Campaign{ID: "CMP000000001", Name: "Diwali"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("partner_user_id\nu1\n"), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), []string{"publish", "-name", "Diwali", "-burn-rules", `{"expiryDays":30}`, path}, &out, env(srv.URL))
	require.NoError(t, err)

	var campaign model.Campaign
	require.NoError(t, json.Unmarshal(out.Bytes(), &campaign))
	require.Equal(t, "CMP000000001", campaign.ID)
}

func TestResultsCommandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found: campaign X"}`))
	}))
	defer srv.Close()

	err := run(context.Background(), []string{"results", "X"}, io.Discard, env(srv.URL))
	require.ErrorContains(t, err, "not found: campaign X")
}

func TestAddrFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/wallets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"wallet_A","partnerUserId":"u1","balance":200}]`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), []string{"-addr", srv.URL, "wallets"}, &out, env("unused:1"))
	require.NoError(t, err)
	require.Contains(t, out.String(), "wallet_A")
}

func TestUsage(t *testing.T) {
	ctx := context.Background()
	for _, args := range [][]string{
		nil,
		{"unknown"},
		{"publish"},
		{"results"},
		{"sample"},
		{"wallets", "a", "b"},
	} {
		require.ErrorIs(t, run(ctx, args, io.Discard, env("localhost:1")), errUsage, "args %v", args)
	}
}
