//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresRepositoryTestSuite exercises the repositories against a real
// PostgreSQL instance. The SQLite suites cover logic; this one catches
// dialect differences (jsonb columns, unique violations, raw SQL).
type PostgresRepositoryTestSuite struct {
	suite.Suite
	container      testcontainers.Container
	db             *gorm.DB
	businessRepo   BusinessRepository
	convRepo       ConversationRepository
	messageRepo    MessageRepository
	attachmentRepo AttachmentRepository
	submissionRepo SubmissionRepository
}

// SetupSuite starts a PostgreSQL container and migrates the schema
func (s *PostgresRepositoryTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "relaydesk_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=relaydesk_test sslmode=disable", host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.Business{}, &models.Conversation{}, &models.Message{}, &models.Attachment{}, &models.Submission{})
	require.NoError(s.T(), err)

	s.db = db
	s.businessRepo = NewBusinessRepository(db)
	s.convRepo = NewConversationRepository(db)
	s.messageRepo = NewMessageRepository(db)
	s.attachmentRepo = NewAttachmentRepository(db, nil)
	s.submissionRepo = NewSubmissionRepository(db)
}

// TearDownSuite terminates the container
func (s *PostgresRepositoryTestSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

// SetupTest truncates all tables
func (s *PostgresRepositoryTestSuite) SetupTest() {
	s.db.Exec("TRUNCATE submissions, attachments, messages, conversations, businesses RESTART IDENTITY CASCADE")
}

// TestPostgresRepositoryTestSuite runs the test suite
func TestPostgresRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresRepositoryTestSuite))
}

func (s *PostgresRepositoryTestSuite) TestDuplicateInboundDomain_UniqueViolation() {
	ctx := context.Background()
	require.NoError(s.T(), s.businessRepo.Create(ctx, &models.Business{Name: "A", InboundDomain: "a.relaydesk.io"}))

	err := s.businessRepo.Create(ctx, &models.Business{Name: "B", InboundDomain: "a.relaydesk.io"})

	assert.ErrorIs(s.T(), err, ErrDuplicateEntry)
}

func (s *PostgresRepositoryTestSuite) TestFullChain_ParsedDataAndSubmission() {
	ctx := context.Background()

	business := &models.Business{Name: "Acme", InboundDomain: "acme.relaydesk.io"}
	require.NoError(s.T(), s.businessRepo.Create(ctx, business))

	conv, created, err := s.convRepo.GetOrCreate(ctx, business.ID, models.ChannelEmail, "jane@customer.com", "Jane")
	require.NoError(s.T(), err)
	require.True(s.T(), created)

	message := &models.Message{ConversationID: conv.ID, Direction: models.DirectionInbound, Subject: "Bill"}
	attachments := []models.Attachment{{Filename: "bill.pdf", ContentType: "application/pdf"}}
	require.NoError(s.T(), s.messageRepo.CreateWithAttachments(ctx, message, attachments))

	// jsonb round trip
	require.NoError(s.T(), s.attachmentRepo.UpdateParsedData(ctx, attachments[0].ID, datatypes.JSON(`{"mprn":"12345678901"}`)))
	stored, err := s.attachmentRepo.GetByID(ctx, attachments[0].ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), stored.HasParsedData())

	submission := &models.Submission{AttachmentID: attachments[0].ID, MPRN: "12345678901"}
	require.NoError(s.T(), s.submissionRepo.Create(ctx, submission))
	submission.Status = models.SubmissionCompleted
	require.NoError(s.T(), s.submissionRepo.Update(ctx, submission))

	latest, err := s.submissionRepo.LatestByAttachment(ctx, attachments[0].ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.SubmissionCompleted, latest.Status)
	assert.Equal(s.T(), uint64(1), latest.Revision)
}

func (s *PostgresRepositoryTestSuite) TestListByConversation_RawSQLOnPostgres() {
	ctx := context.Background()

	business := &models.Business{Name: "Acme", InboundDomain: "acme.relaydesk.io"}
	require.NoError(s.T(), s.businessRepo.Create(ctx, business))
	conv, _, err := s.convRepo.GetOrCreate(ctx, business.ID, models.ChannelEmail, "jane@customer.com", "")
	require.NoError(s.T(), err)

	message := &models.Message{ConversationID: conv.ID, Direction: models.DirectionInbound}
	require.NoError(s.T(), s.messageRepo.CreateWithAttachments(ctx, message, []models.Attachment{{Filename: "a.pdf"}, {Filename: "b.pdf"}}))

	items, total, err := s.messageRepo.ListByConversation(ctx, conv.ID, 10, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), items, 1)
	assert.Equal(s.T(), 2, items[0].AttachmentCount)
}
