package routes

import (
	"errors"

	"github.com/aryeetea/SyncSpaceScheduling/models"
	"github.com/aryeetea/SyncSpaceScheduling/storage"
	"github.com/aryeetea/SyncSpaceScheduling/utils"

	"github.com/kataras/iris/v12"
)

// Store is the group store the handlers run against; main wires it to
// Redis, tests wire it to a MemoryKV.
var Store *storage.GroupStore

func Health(ctx iris.Context) {
	ctx.JSON(iris.Map{"status": "ok"})
}

type createGroupInput struct {
	GroupName string `json:"groupName" validate:"required"`
	UserName  string `json:"userName" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

// CreateGroup registers a new group under a client-generated code and adds
// the caller as its first member. The code is opaque here; only uniqueness
// is enforced.
func CreateGroup(ctx iris.Context) {
	var input createGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, utils.KindValidation, "Missing required fields")
		return
	}

	group, memberID, err := Store.CreateGroup(ctx.Request().Context(), input.GroupName, input.Code, input.UserName)
	if err != nil {
		if errors.Is(err, storage.ErrGroupExists) {
			utils.JSONError(ctx, iris.StatusConflict, utils.KindConflict, "Group code already exists")
			return
		}
		utils.JSONError(ctx, iris.StatusInternalServerError, utils.KindBackend, "Failed to create group")
		return
	}

	ctx.JSON(iris.Map{
		"success":  true,
		"group":    group,
		"memberId": memberID,
	})
}

type joinGroupInput struct {
	UserName string `json:"userName" validate:"required"`
}

// JoinGroup appends a new member to an existing group and hands back the
// freshly generated member id.
func JoinGroup(ctx iris.Context) {
	code := ctx.Params().Get("code")

	var input joinGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, utils.KindValidation, "Username is required")
		return
	}

	group, memberID, err := Store.JoinGroup(ctx.Request().Context(), code, input.UserName)
	if err != nil {
		if errors.Is(err, storage.ErrGroupNotFound) {
			utils.JSONError(ctx, iris.StatusNotFound, utils.KindNotFound, "Group not found")
			return
		}
		utils.JSONError(ctx, iris.StatusInternalServerError, utils.KindBackend, "Failed to join group")
		return
	}

	ctx.JSON(iris.Map{
		"success":  true,
		"group":    group,
		"memberId": memberID,
	})
}

// GetGroup returns the group plus every member with their availability,
// defaulted to the empty week for members who have not saved yet.
func GetGroup(ctx iris.Context) {
	code := ctx.Params().Get("code")

	group, members, err := Store.GetGroup(ctx.Request().Context(), code)
	if err != nil {
		if errors.Is(err, storage.ErrGroupNotFound) {
			utils.JSONError(ctx, iris.StatusNotFound, utils.KindNotFound, "Group not found")
			return
		}
		utils.JSONError(ctx, iris.StatusInternalServerError, utils.KindBackend, "Failed to fetch group")
		return
	}

	ctx.JSON(iris.Map{
		"group":   group,
		"members": members,
	})
}

type updateAvailabilityInput struct {
	MemberID     string                   `json:"memberId" validate:"required"`
	Availability []models.DayAvailability `json:"availability" validate:"required"`
}

// UpdateAvailability overwrites one member's stored week. Last write wins;
// the payload is the whole 7x16 structure, not a delta.
func UpdateAvailability(ctx iris.Context) {
	code := ctx.Params().Get("code")

	var input updateAvailabilityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, utils.KindValidation, "Missing required fields")
		return
	}

	for _, day := range input.Availability {
		for _, block := range day.Blocks {
			if block.Status != nil && !models.ValidStatus(*block.Status) {
				utils.JSONError(ctx, iris.StatusBadRequest, utils.KindValidation, "Invalid availability status")
				return
			}
		}
	}

	err := Store.SetAvailability(ctx.Request().Context(), code, input.MemberID, input.Availability)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrGroupNotFound):
			utils.JSONError(ctx, iris.StatusNotFound, utils.KindNotFound, "Group not found")
		case errors.Is(err, storage.ErrMemberNotFound):
			utils.JSONError(ctx, iris.StatusNotFound, utils.KindNotFound, "Member not found in group")
		default:
			utils.JSONError(ctx, iris.StatusInternalServerError, utils.KindBackend, "Failed to update availability")
		}
		return
	}

	ctx.JSON(iris.Map{"success": true})
}
