package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/models"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConversationHandlerTestSuite is the test suite for ConversationHandler
type ConversationHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	db       *gorm.DB
	handler  *ConversationHandler
	business *models.Business
}

func (s *ConversationHandlerTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
	db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(s.T(), db.AutoMigrate(&models.Business{}, &models.Conversation{}, &models.Message{}, &models.Attachment{}))
	s.db = db
}

func (s *ConversationHandlerTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM messages")
	s.db.Exec("DELETE FROM conversations")
	s.db.Exec("DELETE FROM businesses")

	s.business = &models.Business{PublicID: "b-1", Name: "Acme", InboundDomain: "acme.relaydesk.io", IsActive: true}
	require.NoError(s.T(), s.db.Create(s.business).Error)

	s.echo = echo.New()
	s.handler = NewConversationHandler(
		repository.NewConversationRepository(s.db),
		repository.NewBusinessRepository(s.db),
	)
}

func TestConversationHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationHandlerTestSuite))
}

func (s *ConversationHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

func (s *ConversationHandlerTestSuite) seedConversation(email string) *models.Conversation {
	conversation := &models.Conversation{
		BusinessID:    s.business.ID,
		Channel:       models.ChannelEmail,
		CustomerEmail: email,
	}
	require.NoError(s.T(), s.db.Create(conversation).Error)
	return conversation
}

// ==================== Create Tests ====================

func (s *ConversationHandlerTestSuite) TestCreate_Success() {
	// Arrange
	c, rec := s.createContext(http.MethodPost, "/api/conversations",
		`{"business_id":1,"channel":"email","customer_email":"jane@customer.com","customer_phone":"+353871234567"}`)

	// Act
	err := s.handler.Create(c)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "jane@customer.com")
	assert.Contains(s.T(), rec.Body.String(), "+353871234567")
}

func (s *ConversationHandlerTestSuite) TestCreate_ReusesExistingThread() {
	s.seedConversation("jane@customer.com")
	c, rec := s.createContext(http.MethodPost, "/api/conversations",
		`{"business_id":1,"channel":"email","customer_email":"jane@customer.com"}`)

	err := s.handler.Create(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var count int64
	s.db.Model(&models.Conversation{}).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *ConversationHandlerTestSuite) TestCreate_UnknownChannel() {
	c, rec := s.createContext(http.MethodPost, "/api/conversations",
		`{"business_id":1,"channel":"carrier-pigeon","customer_email":"jane@customer.com"}`)

	err := s.handler.Create(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ConversationHandlerTestSuite) TestCreate_InvalidEmail() {
	c, rec := s.createContext(http.MethodPost, "/api/conversations",
		`{"business_id":1,"channel":"email","customer_email":"not-an-address"}`)

	err := s.handler.Create(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ConversationHandlerTestSuite) TestCreate_BusinessNotFound() {
	c, rec := s.createContext(http.MethodPost, "/api/conversations",
		`{"business_id":999,"channel":"email","customer_email":"jane@customer.com"}`)

	err := s.handler.Create(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

// ==================== List Tests ====================

func (s *ConversationHandlerTestSuite) TestList_Success() {
	// Arrange
	s.seedConversation("jane@customer.com")
	s.seedConversation("john@customer.com")
	c, rec := s.createContext(http.MethodGet, "/api/conversations?business_id=1", "")
	c.QueryParams().Set("business_id", "1")

	// Act
	err := s.handler.List(c)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "jane@customer.com")
	assert.Contains(s.T(), rec.Body.String(), "john@customer.com")
}

func (s *ConversationHandlerTestSuite) TestList_RequiresBusinessID() {
	c, rec := s.createContext(http.MethodGet, "/api/conversations", "")

	err := s.handler.List(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ConversationHandlerTestSuite) TestList_BusinessNotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/conversations?business_id=999", "")
	c.QueryParams().Set("business_id", "999")

	err := s.handler.List(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

// ==================== Get Tests ====================

func (s *ConversationHandlerTestSuite) TestGet_Success() {
	s.seedConversation("jane@customer.com")
	c, rec := s.createContext(http.MethodGet, "/api/conversations/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := s.handler.Get(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "jane@customer.com")
}

func (s *ConversationHandlerTestSuite) TestGet_NotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/conversations/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")

	err := s.handler.Get(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

// ==================== Delete Tests ====================

func (s *ConversationHandlerTestSuite) TestDelete_Success() {
	conversation := s.seedConversation("jane@customer.com")
	c, rec := s.createContext(http.MethodDelete, "/api/conversations/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := s.handler.Delete(c)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	var count int64
	s.db.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Count(&count)
	assert.Equal(s.T(), int64(0), count)
}
