// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/listenroom/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoom{},
		&models.GormRoomMember{},
		&models.GormChatMessage{},
	)
}

// CreateRoom 新建房间记录
func (p *GormPostgreSQL) CreateRoom(code, name string, ownerID int64, ownerName string) error {
	room := models.GormRoom{
		Code:      code,
		Name:      name,
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Status:    string(models.RoomStatusActive),
	}
	return p.db.Create(&room).Error
}

// SetRoomStatus 更新房间状态
func (p *GormPostgreSQL) SetRoomStatus(code string, status models.RoomStatus) error {
	return p.db.Model(&models.GormRoom{}).
		Where("code = ?", code).
		Update("status", string(status)).Error
}

// RoomCodeExists 房间码是否被占用（含历史房间）
func (p *GormPostgreSQL) RoomCodeExists(code string) (bool, error) {
	var count int64
	err := p.db.Model(&models.GormRoom{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// LoadRoom 按房间码加载房间
func (p *GormPostgreSQL) LoadRoom(code string) (*models.Room, error) {
	var room models.GormRoom
	if err := p.db.Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &models.Room{
		Code:      room.Code,
		Name:      room.Name,
		OwnerID:   room.OwnerID,
		Status:    models.RoomStatus(room.Status),
		CreatedAt: room.CreatedAt,
	}, nil
}

// UpsertMember 写入或更新成员关系，重新加入时清除 LeftAt
func (p *GormPostgreSQL) UpsertMember(code string, userID int64, username string, role models.Role, joinedAt time.Time) error {
	var member models.GormRoomMember
	result := p.db.Where("room_code = ? AND user_id = ?", code, userID).First(&member)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		member = models.GormRoomMember{
			RoomCode: code,
			UserID:   userID,
			Username: username,
			Role:     string(role),
			JoinedAt: joinedAt,
		}
		return p.db.Create(&member).Error
	} else if result.Error != nil {
		return result.Error
	}

	member.Username = username
	member.Role = string(role)
	member.LeftAt = nil
	return p.db.Save(&member).Error
}

// MarkMemberLeft 标记成员离开
func (p *GormPostgreSQL) MarkMemberLeft(code string, userID int64) error {
	now := time.Now()
	return p.db.Model(&models.GormRoomMember{}).
		Where("room_code = ? AND user_id = ? AND left_at IS NULL", code, userID).
		Update("left_at", &now).Error
}

// MarkAllMembersLeft 解散时清场
func (p *GormPostgreSQL) MarkAllMembersLeft(code string) error {
	now := time.Now()
	return p.db.Model(&models.GormRoomMember{}).
		Where("room_code = ? AND left_at IS NULL", code).
		Update("left_at", &now).Error
}

// RoomsForUser "我的房间" 列表
func (p *GormPostgreSQL) RoomsForUser(userID int64) ([]models.RoomSummary, error) {
	type row struct {
		Code        string
		Name        string
		OwnerName   string
		OwnerID     int64
		Status      string
		JoinedAt    time.Time
		MemberCount int
	}
	var rows []row

	err := p.db.Raw(`
        SELECT r.code, r.name, r.owner_name, r.owner_id, r.status, m.joined_at,
               (SELECT COUNT(*) FROM gorm_room_members c
                 WHERE c.room_code = r.code AND c.left_at IS NULL) AS member_count
        FROM gorm_rooms r
        JOIN gorm_room_members m ON m.room_code = r.code
        WHERE m.user_id = ? AND m.left_at IS NULL AND r.deleted_at IS NULL
        ORDER BY m.joined_at DESC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]models.RoomSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, models.RoomSummary{
			ID:          r.Code,
			Name:        r.Name,
			OwnerName:   r.OwnerName,
			MemberCount: r.MemberCount,
			IsOwner:     r.OwnerID == userID,
			JoinedAt:    r.JoinedAt,
			Status:      r.Status,
		})
	}
	return summaries, nil
}

// AppendChatMessage 追加聊天记录
func (p *GormPostgreSQL) AppendChatMessage(code string, msg *models.ChatMessage) error {
	record := models.GormChatMessage{
		RoomCode:    code,
		Seq:         msg.Seq,
		UserID:      msg.UserID,
		Username:    msg.Username,
		Content:     msg.Content,
		MessageType: string(msg.Type),
		ClientKey:   msg.ClientKey,
		CreatedAt:   msg.Timestamp,
	}
	return p.db.Create(&record).Error
}

// ChatHistory 按序号升序返回最近 limit 条消息
func (p *GormPostgreSQL) ChatHistory(code string, limit int) ([]models.ChatMessage, error) {
	var records []models.GormChatMessage
	err := p.db.Where("room_code = ?", code).
		Order("seq DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// 取出的是最近的 limit 条，翻转为升序
	messages := make([]models.ChatMessage, len(records))
	for i, rec := range records {
		messages[len(records)-1-i] = models.ChatMessage{
			Seq:       rec.Seq,
			UserID:    rec.UserID,
			Username:  rec.Username,
			Content:   rec.Content,
			Timestamp: rec.CreatedAt,
			Type:      models.MessageType(rec.MessageType),
			ClientKey: rec.ClientKey,
		}
	}
	return messages, nil
}

// MaxChatSeq 房间内已分配的最大消息序号
func (p *GormPostgreSQL) MaxChatSeq(code string) (int64, error) {
	var max *int64
	err := p.db.Model(&models.GormChatMessage{}).
		Where("room_code = ?", code).
		Select("MAX(seq)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
