package services

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// demoRecords is the fixed sample served in demo mode.
var demoRecords = []datasource.Record{
	{"id": 123456789, "name": "User 1", "active": true, "created_at": "2025-01-01"},
	{"id": 987654321, "name": "User 2", "active": true, "created_at": "2025-01-02"},
	{"message_id": 555666777, "chat_id": 111222333, "text": "Sample message"},
	{"user_id": 444555666, "email": "user@example.com", "status": "active"},
	{"id": 777888999, "chat_id": 222333444, "type": "group"},
	{"id": 100200300, "name": "Channel 1", "subscriber_count": 1500},
	{"message_id": 999888777, "from_id": 666555444, "date": "2025-11-07"},
	{"id": 333222111, "username": "testuser", "verified": true},
}

// DemoRecords returns a fresh copy of the demo sample. Documents for MongoDB
// additionally carry a stable ObjectId-shaped _id.
func DemoRecords(dbType datasource.DatabaseType) []datasource.Record {
	out := make([]datasource.Record, len(demoRecords))
	for i, rec := range demoRecords {
		cp := make(datasource.Record, len(rec)+1)
		for k, v := range rec {
			cp[k] = v
		}
		if dbType == datasource.TypeMongoDB {
			cp["_id"] = fmt.Sprintf("6720f1a0b3c4d5e6f7a8b9%02x", i+1)
		}
		out[i] = cp
	}
	return out
}
