package models

import "time"

type FriendRequests struct {
	Incoming []string `json:"incoming"`
	Outgoing []string `json:"outgoing"`
}

// User is the view of an account handed to callers. It never carries the password.
type User struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	Avatar         string         `json:"avatar"`
	Friends        []string       `json:"friends"`
	FriendRequests FriendRequests `json:"friendRequests"`
	Servers        []string       `json:"servers"`
}

// UserRecord is what the users table stores.
type UserRecord struct {
	User
	PasswordHash string `json:"password"`
}

type ChannelType string

const (
	ChannelTypeText  ChannelType = "text"
	ChannelTypeVoice ChannelType = "voice"
)

func (t ChannelType) Valid() bool {
	return t == ChannelTypeText || t == ChannelTypeVoice
}

type Channel struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Type ChannelType `json:"type"`
}

type Bot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Enabled bool   `json:"enabled"`
}

type Server struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	OwnerID  string    `json:"ownerId"`
	Members  []string  `json:"members"`
	Channels []Channel `json:"channels"`
	Bots     []Bot     `json:"bots"`
}

// ServerUpdate carries the fields of a server the owner may change. Nil fields are left alone.
type ServerUpdate struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Avatar    string    `json:"avatar"`
	ChannelID string    `json:"channelId"`
	ServerID  string    `json:"serverId,omitempty"`
}

type ConfigFile struct {
	Address           string
	Port              string
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	SqlitePath        string
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	KeyPrefix         string
	BcryptCost        int
}
