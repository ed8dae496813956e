package cache

import (
	"github.com/mitfusco98/health-prep-sub002/types"
	"github.com/mitfusco98/health-prep-sub002/utils"
)

// SonicCodec encodes cache entries as JSON for the durable backend. Values
// that cannot be represented as JSON stay cacheable through the in-process
// path; the manager skips only the durable write on Encode failure.
type SonicCodec struct{}

func NewSonicCodec() types.Codec {
	return &SonicCodec{}
}

func (c *SonicCodec) Encode(value interface{}) ([]byte, error) {
	data, err := utils.Marshal(value)
	if err != nil {
		return nil, types.WrapError(err, "sonic encode failed")
	}
	return data, nil
}

func (c *SonicCodec) Decode(data []byte, target interface{}) error {
	if err := utils.UnmarshalAny(data, target); err != nil {
		return types.WrapError(err, "sonic decode failed")
	}
	return nil
}
