package mapper

import (
	"docrag-be/internal/entity"
	"docrag-be/internal/model"
)

type DeadLetterMapper struct{}

func NewDeadLetterMapper() *DeadLetterMapper {
	return &DeadLetterMapper{}
}

func (m *DeadLetterMapper) ToEntity(d *model.DeadLetter) *entity.DeadLetter {
	if d == nil {
		return nil
	}
	return &entity.DeadLetter{
		Id:         d.Id,
		Topic:      d.Topic,
		MessageId:  d.MessageId,
		Payload:    d.Payload,
		Error:      d.Error,
		RetryCount: d.RetryCount,
		CreatedAt:  d.CreatedAt,
	}
}

func (m *DeadLetterMapper) ToModel(d *entity.DeadLetter) *model.DeadLetter {
	if d == nil {
		return nil
	}
	return &model.DeadLetter{
		Id:         d.Id,
		Topic:      d.Topic,
		MessageId:  d.MessageId,
		Payload:    d.Payload,
		Error:      d.Error,
		RetryCount: d.RetryCount,
		CreatedAt:  d.CreatedAt,
	}
}

func (m *DeadLetterMapper) ToEntities(letters []*model.DeadLetter) []*entity.DeadLetter {
	entities := make([]*entity.DeadLetter, len(letters))
	for i, d := range letters {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
