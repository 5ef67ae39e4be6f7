package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TagKey returns the backing set key for a tag.
func TagKey(tag string) string {
	return tagKeyPrefix + tag
}

// addKeyToTags registers key in each tag's member set. The tag set expires
// slightly after the member keys so it never outlives orphaned references
// for long, and never expires before live members.
func (s *Store) addKeyToTags(ctx context.Context, key string, tags []string, memberTTL time.Duration) {
	for _, tag := range tags {
		tagKey := TagKey(tag)
		if err := s.backend.SAdd(ctx, tagKey, key); err != nil {
			s.logger.Warn("tag registration failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		if err := s.backend.Expire(ctx, tagKey, memberTTL+s.tagGrace); err != nil {
			s.logger.Warn("tag expire failed", zap.String("tag", tag), zap.Error(err))
		}
	}
}

// InvalidateTag deletes every key registered under tag plus the tag set
// itself, returning the number of member keys deleted. Unknown tags return 0.
func (s *Store) InvalidateTag(ctx context.Context, tag string) int {
	if !s.backend.Ready() {
		return 0
	}

	tagKey := TagKey(tag)
	members, err := s.backend.SMembers(ctx, tagKey)
	if err != nil {
		s.logger.Warn("tag members lookup failed", zap.String("tag", tag), zap.Error(err))
		return 0
	}

	if len(members) > 0 {
		if err := s.backend.Delete(ctx, members...); err != nil {
			s.logger.Warn("tag member delete failed", zap.String("tag", tag), zap.Error(err))
			return 0
		}
		if err := s.backend.Delete(ctx, tagKey); err != nil {
			s.logger.Warn("tag set delete failed", zap.String("tag", tag), zap.Error(err))
		}
	}

	s.logger.Debug("invalidated tag",
		zap.String("tag", tag),
		zap.Int("keys", len(members)),
	)
	return len(members)
}

// InvalidateTags invalidates each tag in turn and returns the summed member
// count. A key registered under several tags may be deleted more than once;
// that is idempotent and safe.
func (s *Store) InvalidateTags(ctx context.Context, tags []string) int {
	total := 0
	for _, tag := range tags {
		total += s.InvalidateTag(ctx, tag)
	}
	return total
}
