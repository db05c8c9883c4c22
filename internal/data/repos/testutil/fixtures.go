package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/dae-backend/internal/domain"
)

// Address returns a random lower-case 0x address so tests sharing a Postgres
// database don't collide.
func Address(tb testing.TB) string {
	tb.Helper()
	return "0x" + randomHex(tb, 20)
}

func TxHash(tb testing.TB) string {
	tb.Helper()
	return "0x" + randomHex(tb, 32)
}

func randomHex(tb testing.TB, n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		tb.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b)
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, chainID int64, owner string) *types.Course {
	tb.Helper()
	c := &types.Course{
		Address:      Address(tb),
		ChainID:      chainID,
		OwnerAddress: owner,
		Name:         "Course",
		Description:  "A course",
		Symbol:       "CRS",
		MaxSupply:    "100",
		BaseURI:      "ipfs://bafycourse",
		ImageURL:     "ipfs://bafyimage",
		AccessURL:    "https://learn.example",
		Website:      "https://example.org",
		Attributes:   datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedCredential(tb testing.TB, ctx context.Context, tx *gorm.DB, course *types.Course, cid, kind string) *types.Credential {
	tb.Helper()
	cred := &types.Credential{
		CourseAddress: course.Address,
		ChainID:       course.ChainID,
		IPFSCID:       cid,
		Name:          "Credential " + cid,
		Kind:          kind,
		CreatedBy:     course.OwnerAddress,
	}
	if err := tx.WithContext(ctx).Create(cred).Error; err != nil {
		tb.Fatalf("seed credential: %v", err)
	}
	return cred
}

func SeedUserCredential(tb testing.TB, ctx context.Context, tx *gorm.DB, course *types.Course, user, tokenID, credType string) *types.UserCredential {
	tb.Helper()
	row := &types.UserCredential{
		CourseAddress:  course.Address,
		ChainID:        course.ChainID,
		UserAddress:    user,
		TokenID:        tokenID,
		CredentialType: credType,
		Verified:       true,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed user credential: %v", err)
	}
	return row
}

func SeedPending(tb testing.TB, ctx context.Context, tx *gorm.DB, chainID int64, user string, action types.PendingAction, payload []byte) *types.PendingTransaction {
	tb.Helper()
	p := &types.PendingTransaction{
		TxHash:      TxHash(tb),
		ChainID:     chainID,
		UserAddress: user,
		Action:      action,
	}
	if payload != nil {
		p.Payload = datatypes.JSON(payload)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed pending transaction: %v", err)
	}
	return p
}
