//go:build integration

package employee

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/JonMunkholm/EmployeeImport/internal/blob"
	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *PostgresStore
	ownerID   int64
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("employees"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = ctr

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	cfg, err := pgxpool.ParseConfig(dsn)
	s.Require().NoError(err)

	s.pool, err = Connect(ctx, cfg)
	s.Require().NoError(err)

	s.store = NewPostgresStore(s.pool)
	s.Require().NoError(s.store.EnsureSchema(ctx))
	s.Require().NoError(s.store.EnsureSchema(ctx), "schema is idempotent")
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.container.Terminate(ctx)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `TRUNCATE employees, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.ownerID, err = s.store.CreateUser(ctx, "Owner", "owner@example.com")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestCreateAndLookups() {
	ctx := context.Background()

	id, err := s.store.Create(ctx, s.ownerID, record("Maria@Example.com", "11144477735"))
	s.Require().NoError(err)
	s.Positive(id)

	found, err := s.store.EmailExists(ctx, "maria@example.com")
	s.Require().NoError(err)
	s.True(found)

	found, err = s.store.TaxIDExists(ctx, "11144477735")
	s.Require().NoError(err)
	s.True(found)

	found, err = s.store.TaxIDExists(ctx, "52998224725")
	s.Require().NoError(err)
	s.False(found)

	n, err := s.store.CountByOwner(ctx, s.ownerID)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *PostgresStoreSuite) TestUniqueViolations() {
	ctx := context.Background()

	_, err := s.store.Create(ctx, s.ownerID, record("maria@example.com", "11144477735"))
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, s.ownerID, record("MARIA@example.com", "52998224725"))
	var cv *core.ConstraintViolationError
	s.Require().ErrorAs(err, &cv)
	s.Equal(core.ColumnEmail, cv.Field)

	_, err = s.store.Create(ctx, s.ownerID, record("joao@example.com", "11144477735"))
	s.Require().ErrorAs(err, &cv)
	s.Equal(core.ColumnTaxID, cv.Field)
}

func (s *PostgresStoreSuite) TestFindUser() {
	ctx := context.Background()

	u, err := s.store.FindUser(ctx, s.ownerID)
	s.Require().NoError(err)
	s.Equal("owner@example.com", u.Email)

	_, err = s.store.FindUser(ctx, s.ownerID+100)
	s.ErrorIs(err, core.ErrUserNotFound)
}

type recordingNotifier struct {
	bodies []string
}

func (n *recordingNotifier) Send(_ context.Context, _, _, body string) error {
	n.bodies = append(n.bodies, body)
	return nil
}

func (s *PostgresStoreSuite) TestImportThroughStore() {
	ctx := context.Background()

	blobs := blob.NewFSStore(afero.NewMemMapFs())
	csv := "name,email,cpf,city,state\n" +
		"Maria Silva,maria@example.com,111.444.777-35,Campinas,São Paulo\n" +
		"Maria Copy,MARIA@example.com,529.982.247-25,Campinas,SP\n" +
		"Joao Souza,joao@example.com,529.982.247-25,Recife,PE\n"
	s.Require().NoError(blobs.Put(ctx, "imports/e2e.csv", strings.NewReader(csv)))

	notifier := &recordingNotifier{}
	imp, err := core.NewImporter(core.Deps{
		Blobs:    blobs,
		Creator:  NewService(s.store, nil, nil),
		Usage:    s.store,
		Notifier: notifier,
		Users:    s.store,
	})
	s.Require().NoError(err)

	summary, err := imp.Run(ctx, "imports/e2e.csv", s.ownerID)
	s.Require().NoError(err)
	s.Equal(2, summary.ProcessedCount)
	s.Equal(1, summary.ErrorCount)
	s.Require().Len(notifier.bodies, 1)
	s.Contains(notifier.bodies[0], "Line 3: Email is already in use")

	n, err := s.store.CountByOwner(ctx, s.ownerID)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	found, err := s.store.TaxIDExists(ctx, "52998224725")
	s.Require().NoError(err)
	s.True(found)
}
