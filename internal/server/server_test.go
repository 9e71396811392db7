package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/server/handler/rpc"
	"github.com/shanmiteko/bili-login/internal/server/service"
)

type stubFlow struct{}

func (stubFlow) Reset(ctx context.Context) error { return nil }

func (stubFlow) BeginLogin(ctx context.Context, username, password string) (domain.ChallengeParameters, error) {
	return domain.ChallengeParameters{}, nil
}

func (stubFlow) CompleteLogin(ctx context.Context, validate, seccode string) (domain.LoginResult, error) {
	return domain.LoginResult{}, nil
}

func (stubFlow) Epoch() (domain.Epoch, bool) {
	return domain.NewEpoch(domain.ChallengeParameters{GT: "g", Challenge: "c", Token: "t"}), true
}

func newServer() *Server {
	return &Server{FlowService: &service.FlowService{Flow: stubFlow{}}}
}

func TestServeRPC(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newServer().serveRPC(ctx, ln) }()

	conn, err := grpc.NewClient(ln.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	out, err := rpc.NewLoginFlowClient(conn).ResetFlow(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "t", out.GetFields()["token"].GetStringValue())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("rpc server did not stop")
	}
}

func TestServeHTTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newServer().serveHTTP(ctx, ln) }()

	resp, err := http.Post(fmt.Sprintf("http://%s/flow/reset", ln.Addr()), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "g", got["gt"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("http server did not stop")
	}
}
