//go:build integration

package archive

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	"code-translator/internal/config"
	"code-translator/internal/domain"
)

var testCfg config.ArchiveConfig

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not connect to docker: %s", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        "latest",
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=MYACCESSKEY",
			"MINIO_ROOT_PASSWORD=MYSECRETKEY",
		},
	})
	if err != nil {
		log.Fatalf("could not start minio: %s", err)
	}
	_ = resource.Expire(120)

	endpoint := fmt.Sprintf("localhost:%s", resource.GetPort("9000/tcp"))
	// the client does not probe the server, so wait on the health check
	if err := pool.Retry(func() error {
		resp, err := http.Get(fmt.Sprintf("http://%s/minio/health/live", endpoint))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("minio never became ready: %s", err)
	}
	testCfg = config.ArchiveConfig{Enabled: true, Endpoint: endpoint, AccessKey: "MYACCESSKEY", SecretKey: "MYSECRETKEY", Bucket: "jobs"}

	code := m.Run()
	if err := pool.Purge(resource); err != nil {
		log.Printf("could not purge minio: %s", err)
	}
	os.Exit(code)
}

func TestStore_Integration(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, testCfg)
	require.NoError(t, err)

	// the bucket already exists the second time round
	_, err = New(ctx, testCfg)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "01J/source_python.txt", []byte("def f(): pass"), "text/plain"))
	got, err := s.Get(ctx, "01J/source_python.txt")
	require.NoError(t, err)
	require.Equal(t, "def f(): pass", string(got))

	_, err = s.Get(ctx, "01J/missing.txt")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.ArchiveConfig{Endpoint: "localhost:9000"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
