package service

import "Vid_Community/internal/model"

// CanModify 作者本人或管理员
func CanModify(actor *model.User, creatorID uint64) bool {
	if actor == nil {
		return false
	}
	return actor.ID == creatorID || actor.IsStaff
}
