package contracts

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Role = common.Hash

var (
	DefaultAdminRole = Role{}
	MagisterRole     = crypto.Keccak256Hash([]byte("MAGISTER_ROLE"))
	DiscipulusRole   = crypto.Keccak256Hash([]byte("DISCIPULUS_ROLE"))
)

// Credential type tags stored on user_credentials and credentials.
const (
	TagTeacher = "teacher"
	TagStudent = "student"
	TagAdmin   = "admin"
	TagOther   = "other"
)

func RoleTag(role Role) string {
	switch role {
	case MagisterRole:
		return TagTeacher
	case DiscipulusRole:
		return TagStudent
	case DefaultAdminRole:
		return TagAdmin
	default:
		return TagOther
	}
}

func ValidTag(tag string) bool {
	switch tag {
	case TagTeacher, TagStudent, TagAdmin, TagOther:
		return true
	}
	return false
}
