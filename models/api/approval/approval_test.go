package approvalapimodels

import (
	"strings"
	"testing"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	"github.com/stretchr/testify/require"
)

func TestCommentValidation(t *testing.T) {
	padded := "  " + strings.Repeat("ж", 10) + "\n"

	t.Run(`respond and comment count the trimmed text`, func(t *testing.T) {
		require.Nil(t, ApprovalRespondData{Decision: models.ResponseDeclined, Comment: padded}.Validate(10))
		require.Nil(t, ApprovalCommentData{Body: padded}.Validate(10))

		err := ApprovalRespondData{Decision: models.ResponseDeclined, Comment: padded}.Validate(9)
		require.True(t, apperrors.IsValidation(err))
		require.Equal(t, "comment must not exceed 9 characters", err.Error())
		err = ApprovalCommentData{Body: padded}.Validate(9)
		require.Equal(t, "comment must not exceed 9 characters", err.Error())
	})

	t.Run(`decline and revision need a comment`, func(t *testing.T) {
		err := ApprovalRespondData{Decision: models.ResponseRevisionRequested, Comment: " "}.Validate(0)
		require.Equal(t, "a comment is required to request a revision", err.Error())
		require.Nil(t, ApprovalRespondData{Decision: models.ResponseApproved}.Validate(0))
		require.True(t, apperrors.IsValidation(ApprovalRespondData{Decision: "maybe"}.Validate(0)))
	})

	t.Run(`limit is clamped to the column size`, func(t *testing.T) {
		require.Equal(t, models.CommentMaxLength, CommentLimit(0))
		require.Equal(t, models.CommentMaxLength, CommentLimit(-1))
		require.Equal(t, models.CommentMaxLength, CommentLimit(5000))
		require.Equal(t, 200, CommentLimit(200))

		long := strings.Repeat("x", models.CommentMaxLength+1)
		require.True(t, apperrors.IsValidation(ApprovalCommentData{Body: long}.Validate(5000)))
		require.True(t, apperrors.IsValidation(ApprovalRespondData{Decision: models.ResponseApproved, Comment: long}.Validate(5000)))
	})
}
