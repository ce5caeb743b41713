// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/listenroom/models"
)

// PostgreSQL 不经 ORM 的 database/sql 实现，与 GormPostgreSQL 等价
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            code VARCHAR(6) UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            owner_id BIGINT NOT NULL,
            owner_name VARCHAR(255) NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'active',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS room_members (
            id SERIAL PRIMARY KEY,
            room_code VARCHAR(6) NOT NULL,
            user_id BIGINT NOT NULL,
            username VARCHAR(255) NOT NULL,
            role VARCHAR(20) NOT NULL DEFAULT 'member',
            joined_at TIMESTAMP NOT NULL,
            left_at TIMESTAMP,
            UNIQUE (room_code, user_id)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS chat_messages (
            id SERIAL PRIMARY KEY,
            room_code VARCHAR(6) NOT NULL,
            seq BIGINT NOT NULL,
            user_id BIGINT,
            username VARCHAR(255),
            content TEXT NOT NULL,
            message_type VARCHAR(20) NOT NULL DEFAULT 'chat',
            client_key VARCHAR(64),
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (room_code, seq)
        )
    `)
	return err
}

// CreateRoom 新建房间记录
func (p *PostgreSQL) CreateRoom(code, name string, ownerID int64, ownerName string) error {
	_, err := p.db.Exec(
		`INSERT INTO rooms (code, name, owner_id, owner_name, status) VALUES ($1, $2, $3, $4, 'active')`,
		code, name, ownerID, ownerName,
	)
	return err
}

// SetRoomStatus 更新房间状态
func (p *PostgreSQL) SetRoomStatus(code string, status models.RoomStatus) error {
	_, err := p.db.Exec(`UPDATE rooms SET status = $1 WHERE code = $2`, string(status), code)
	return err
}

// RoomCodeExists 房间码是否被占用
func (p *PostgreSQL) RoomCodeExists(code string) (bool, error) {
	var count int
	err := p.db.QueryRow(`SELECT COUNT(*) FROM rooms WHERE code = $1`, code).Scan(&count)
	return count > 0, err
}

// LoadRoom 按房间码加载
func (p *PostgreSQL) LoadRoom(code string) (*models.Room, error) {
	var room models.Room
	var status string
	err := p.db.QueryRow(
		`SELECT code, name, owner_id, status, created_at FROM rooms WHERE code = $1`,
		code,
	).Scan(&room.Code, &room.Name, &room.OwnerID, &status, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	room.Status = models.RoomStatus(status)
	return &room, nil
}

// UpsertMember 写入或更新成员关系
func (p *PostgreSQL) UpsertMember(code string, userID int64, username string, role models.Role, joinedAt time.Time) error {
	_, err := p.db.Exec(`
        INSERT INTO room_members (room_code, user_id, username, role, joined_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (room_code, user_id)
        DO UPDATE SET username = $3, role = $4, left_at = NULL`,
		code, userID, username, string(role), joinedAt,
	)
	return err
}

// MarkMemberLeft 标记成员离开
func (p *PostgreSQL) MarkMemberLeft(code string, userID int64) error {
	_, err := p.db.Exec(
		`UPDATE room_members SET left_at = CURRENT_TIMESTAMP WHERE room_code = $1 AND user_id = $2 AND left_at IS NULL`,
		code, userID,
	)
	return err
}

// MarkAllMembersLeft 解散时清场
func (p *PostgreSQL) MarkAllMembersLeft(code string) error {
	_, err := p.db.Exec(
		`UPDATE room_members SET left_at = CURRENT_TIMESTAMP WHERE room_code = $1 AND left_at IS NULL`,
		code,
	)
	return err
}

// RoomsForUser "我的房间" 列表
func (p *PostgreSQL) RoomsForUser(userID int64) ([]models.RoomSummary, error) {
	rows, err := p.db.Query(`
        SELECT r.code, r.name, r.owner_name, r.owner_id, r.status, m.joined_at,
               (SELECT COUNT(*) FROM room_members c
                 WHERE c.room_code = r.code AND c.left_at IS NULL) AS member_count
        FROM rooms r
        JOIN room_members m ON m.room_code = r.code
        WHERE m.user_id = $1 AND m.left_at IS NULL
        ORDER BY m.joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.RoomSummary
	for rows.Next() {
		var s models.RoomSummary
		var ownerID int64
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerName, &ownerID, &s.Status, &s.JoinedAt, &s.MemberCount); err != nil {
			return nil, err
		}
		s.IsOwner = ownerID == userID
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// AppendChatMessage 追加聊天记录
func (p *PostgreSQL) AppendChatMessage(code string, msg *models.ChatMessage) error {
	_, err := p.db.Exec(`
        INSERT INTO chat_messages (room_code, seq, user_id, username, content, message_type, client_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		code, msg.Seq, msg.UserID, msg.Username, msg.Content, string(msg.Type), msg.ClientKey, msg.Timestamp,
	)
	return err
}

// ChatHistory 按序号升序返回最近 limit 条消息
func (p *PostgreSQL) ChatHistory(code string, limit int) ([]models.ChatMessage, error) {
	rows, err := p.db.Query(`
        SELECT seq, user_id, username, content, message_type, client_key, created_at
        FROM chat_messages WHERE room_code = $1
        ORDER BY seq DESC LIMIT $2`,
		code, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var msgType string
		if err := rows.Scan(&m.Seq, &m.UserID, &m.Username, &m.Content, &msgType, &m.ClientKey, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Type = models.MessageType(msgType)
		recent = append(recent, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 翻转为升序
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// MaxChatSeq 房间内已分配的最大消息序号
func (p *PostgreSQL) MaxChatSeq(code string) (int64, error) {
	var max sql.NullInt64
	err := p.db.QueryRow(
		`SELECT MAX(seq) FROM chat_messages WHERE room_code = $1`, code,
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
