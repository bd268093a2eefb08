package test

import (
	"os"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type LocalTestFixture struct {
	dockerComposePath string
	compose           testcontainers.DockerCompose
}

func NewLocalTestFixture(dockerComposePath string) (LocalTestFixture, error) {
	compose := testcontainers.NewLocalDockerCompose(
		[]string{dockerComposePath},
		uuid.New().String(),
	)

	compose.WithCommand([]string{"up", "-d"})
	compose.WithExposedService("relay-db", 5432, wait.ForListeningPort(nat.Port("5432/tcp")))

	f := LocalTestFixture{
		dockerComposePath: dockerComposePath,
		compose:           compose,
	}

	return f, nil
}

func (f *LocalTestFixture) Start() error {
	if skip := os.Getenv("SKIP_INFRASTRUCTURE"); skip == "true" {
		return nil
	}

	execErr := f.compose.Invoke()
	return execErr.Error
}

func (f *LocalTestFixture) Stop() error {
	if skip := os.Getenv("SKIP_INFRASTRUCTURE"); skip == "true" {
		return nil
	}

	execErr := f.compose.Down()
	return execErr.Error
}
