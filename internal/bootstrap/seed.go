package bootstrap

import (
	"anoa.com/boardpush/internal/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates the notification table. Member and board tables belong to
// other services; they are migrated here only so local runs have them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.Board{},
		&entity.Reply{},
		&entity.Notification{},
	)
}

// BoardIndexer mirrors seeded boards into the search index.
type BoardIndexer interface {
	IndexBoard(board *entity.Board) error
	IndexReply(reply *entity.Reply) error
}

type seedMember struct {
	username string
	email    string
	fullName string
}

var devMembers = []seedMember{
	{username: "minji", email: "minji@example.com", fullName: "Kim Minji"},
	{username: "hanni", email: "hanni@example.com", fullName: "Pham Hanni"},
	{username: "dani", email: "dani@example.com"},
}

// SeedDevData creates a few members, one board per category and a reply on
// each board. It does nothing when members already exist. indexer may be nil.
func SeedDevData(db *gorm.DB, indexer BoardIndexer, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&entity.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("members already exist, skipping seed")
		return nil
	}

	var boards []entity.Board
	var replies []entity.Reply

	err := db.Transaction(func(tx *gorm.DB) error {
		users := make([]entity.User, 0, len(devMembers))
		for _, m := range devMembers {
			user := entity.User{Username: m.username, Email: m.email}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if m.fullName != "" {
				if err := tx.Create(&entity.Profile{UserID: user.ID, FullName: m.fullName}).Error; err != nil {
					return err
				}
			}
			users = append(users, user)
		}

		seeds := []struct {
			category entity.BoardCategory
			title    string
			content  string
			reply    string
		}{
			{entity.CategoryQuestion, "How do you structure a Go service?", "<p>Looking for layouts that scale past ten packages.</p>", "Split by module, keep delivery thin."},
			{entity.CategoryInspiration, "Morning routines that stuck", "<p>Share what actually worked for you.</p>", "Walking before opening the laptop."},
			{entity.CategoryCoworking, "Looking for a frontend partner", "<p>Side project, two evenings a week.</p>", "I'm in, ping me."},
		}

		for i, s := range seeds {
			writer := users[i%len(users)]
			responder := users[(i+1)%len(users)]

			board := entity.Board{WriterID: writer.ID, Category: s.category, Title: s.title, Content: s.content}
			if err := tx.Create(&board).Error; err != nil {
				return err
			}
			reply := entity.Reply{BoardID: board.ID, WriterID: responder.ID, Content: s.reply}
			if err := tx.Create(&reply).Error; err != nil {
				return err
			}
			reply.Board = board

			boards = append(boards, board)
			replies = append(replies, reply)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if indexer != nil {
		for i := range boards {
			if err := indexer.IndexBoard(&boards[i]); err != nil {
				logger.Warn("index seeded board failed", zap.String("board_id", boards[i].ID.String()), zap.Error(err))
			}
		}
		for i := range replies {
			if err := indexer.IndexReply(&replies[i]); err != nil {
				logger.Warn("index seeded reply failed", zap.String("reply_id", replies[i].ID.String()), zap.Error(err))
			}
		}
	}

	logger.Info("development data seeded",
		zap.Int("members", len(devMembers)),
		zap.Int("boards", len(boards)),
	)
	return nil
}
