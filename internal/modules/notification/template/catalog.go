package template

import "anoa.com/boardpush/internal/entity"

type catalog map[entity.NotificationType]Template

var korean = catalog{
	entity.TypeBoardBanned: {
		Format: "당신의 게시글이 신고 및 규정 위반으로 삭제 처리되었습니다. 이의 혹은 오류가 있을 경우 멤버십 센터에 문의주세요.",
	},
	entity.TypeBoardLike:              {Format: "%s 멤버가 당신의 보드를 추천했어요! %s", Args: 2},
	entity.TypeReplyLikeAnswer:        {Format: "%s 멤버가 당신의 답변을 추천했어요! %s", Args: 2},
	entity.TypeReplyLikeInspiration:   {Format: "%s 멤버가 당신의 답글을 추천했어요! %s", Args: 2},
	entity.TypeReplyLikeCoworking:     {Format: "%s 멤버가 당신의 참여를 추천했어요! %s", Args: 2},
	entity.TypeReplyUploadAnswer:      {Format: "%s 멤버가 당신의 질문에 답변했어요! %s", Args: 2},
	entity.TypeReplyUploadInspiration: {Format: "%s 멤버가 당신의 영감에 답글을 달았어요! %s", Args: 2},
	entity.TypeReplyUploadCoworking:   {Format: "%s 멤버가 당신의 협업 제안에 응했어요! %s", Args: 2},
	entity.TypeGuestBoardUpload:       {Format: "%s 멤버가 당신의 게스트 보드에 글을 남겼어요! %s", Args: 2},
}

var english = catalog{
	entity.TypeBoardBanned: {
		Format: "Your board was removed after reports of a policy violation. If you think this is a mistake, please contact the membership center.",
	},
	entity.TypeBoardLike:              {Format: "%s recommended your board! %s", Args: 2},
	entity.TypeReplyLikeAnswer:        {Format: "%s recommended your answer! %s", Args: 2},
	entity.TypeReplyLikeInspiration:   {Format: "%s recommended your reply! %s", Args: 2},
	entity.TypeReplyLikeCoworking:     {Format: "%s recommended your participation! %s", Args: 2},
	entity.TypeReplyUploadAnswer:      {Format: "%s answered your question! %s", Args: 2},
	entity.TypeReplyUploadInspiration: {Format: "%s replied to your inspiration! %s", Args: 2},
	entity.TypeReplyUploadCoworking:   {Format: "%s responded to your coworking proposal! %s", Args: 2},
	entity.TypeGuestBoardUpload:       {Format: "%s left a post on your guest board! %s", Args: 2},
}
