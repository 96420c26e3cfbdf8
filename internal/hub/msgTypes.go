package hub

const (
	ServerCreated  = "ServerCreated"
	ServerDeleted  = "ServerDeleted"
	ServerModified = "ServerModified"

	MemberJoined = "MemberJoined"
	MemberLeft   = "MemberLeft"

	ChannelCreated = "ChannelCreated"
	ChannelDeleted = "ChannelDeleted"

	BotCreated  = "BotCreated"
	BotDeleted  = "BotDeleted"
	BotModified = "BotModified"

	FriendRequestCreated = "FriendRequestCreated"
	FriendRequestDeleted = "FriendRequestDeleted"
	FriendAdded          = "FriendAdded"
	FriendRemoved        = "FriendRemoved"

	UserModified = "UserModified"
	UserDeleted  = "UserDeleted"

	MessageCreated = "MessageCreated"
)
