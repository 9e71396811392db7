package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/server/service"
)

type LoginFlowHandler struct {
	Service *service.FlowService
}

func (h *LoginFlowHandler) StartLogin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params, err := h.Service.StartLogin(ctx, stringField(req, "username"), stringField(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return challengeReply(params)
}

func (h *LoginFlowHandler) SubmitVerification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.Service.SubmitVerification(ctx, stringField(req, "validate"), stringField(req, "seccode"))
	if err != nil {
		return nil, toStatus(err)
	}
	reply, err := structpb.NewStruct(map[string]any{
		"outcome": res.Outcome.String(),
		"url":     res.RedirectURL,
		"message": res.Message,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return reply, nil
}

func (h *LoginFlowHandler) ResetFlow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	params, err := h.Service.ResetFlow(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return challengeReply(params)
}

func (h *LoginFlowHandler) ListAttempts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := int(req.GetFields()["limit"].GetNumberValue())
	attempts, err := h.Service.Attempts(ctx, limit)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]any, 0, len(attempts))
	for _, a := range attempts {
		v := attemptView{}
		if err := copier.CopyWithOption(&v, &a, attemptCopyOption); err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		list = append(list, map[string]any{
			"id":         v.ID,
			"epoch_id":   v.EpochID,
			"username":   v.Username,
			"outcome":    v.Outcome,
			"message":    v.Message,
			"created_at": v.CreatedAt,
		})
	}
	reply, err := structpb.NewStruct(map[string]any{"attempts": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return reply, nil
}

type attemptView struct {
	ID        string
	EpochID   string
	Username  string
	Outcome   string
	Message   string
	CreatedAt string
}

var attemptCopyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: uuid.UUID{},
			DstType: copier.String,
			Fn: func(src any) (any, error) {
				return src.(uuid.UUID).String(), nil
			},
		},
		{
			SrcType: time.Time{},
			DstType: copier.String,
			Fn: func(src any) (any, error) {
				return src.(time.Time).UTC().Format(time.RFC3339), nil
			},
		},
	},
}

func challengeReply(params domain.ChallengeParameters) (*structpb.Struct, error) {
	reply, err := structpb.NewStruct(map[string]any{
		"gt":        params.GT,
		"challenge": params.Challenge,
		"token":     params.Token,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return reply, nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func toStatus(err error) error {
	switch service.Classify(err) {
	case service.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case service.KindUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	case service.KindMalformed:
		return status.Error(codes.DataLoss, err.Error())
	case service.KindPrecondition:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
