package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleConditionsMatches(t *testing.T) {
	tests := []struct {
		name       string
		conditions RuleConditions
		peer       string
		item       string
		category   string
		want       bool
	}{
		{
			name:       "peer substring match",
			conditions: RuleConditions{Peer: []string{"星巴克"}},
			peer:       "星巴克咖啡(北京)有限公司",
			want:       true,
		},
		{
			name:       "peer substring miss",
			conditions: RuleConditions{Peer: []string{"星巴克"}},
			peer:       "瑞幸咖啡",
			want:       false,
		},
		{
			name:       "any pattern in key suffices",
			conditions: RuleConditions{Peer: []string{"星巴克", "瑞幸"}},
			peer:       "瑞幸咖啡",
			want:       true,
		},
		{
			name:       "all keys must hold",
			conditions: RuleConditions{Peer: []string{"滴滴"}, Item: []string{"快车"}},
			peer:       "滴滴出行",
			item:       "顺风车订单",
			want:       false,
		},
		{
			name:       "category matches exactly only",
			conditions: RuleConditions{Category: []string{"餐饮"}},
			category:   "餐饮美食",
			want:       false,
		},
		{
			name:       "category exact match",
			conditions: RuleConditions{Category: []string{"餐饮美食"}},
			category:   "餐饮美食",
			want:       true,
		},
		{
			name:       "item substring is case sensitive",
			conditions: RuleConditions{Item: []string{"Netflix"}},
			item:       "netflix monthly",
			want:       false,
		},
		{
			name:       "empty conditions never match",
			conditions: RuleConditions{},
			peer:       "anything",
			want:       false,
		},
		{
			name:       "unconstrained keys are ignored",
			conditions: RuleConditions{Peer: []string{"美团"}},
			peer:       "美团平台商户",
			item:       "随便什么",
			category:   "任意",
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.conditions.Matches(tt.peer, tt.item, tt.category)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleConditionsUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RuleConditions
		wantErr bool
	}{
		{
			name:  "bare string becomes single pattern",
			input: `{"peer": "星巴克"}`,
			want:  RuleConditions{Peer: []string{"星巴克"}},
		},
		{
			name:  "array of patterns",
			input: `{"peer": ["星巴克", "瑞幸"], "category": ["餐饮美食"]}`,
			want:  RuleConditions{Peer: []string{"星巴克", "瑞幸"}, Category: []string{"餐饮美食"}},
		},
		{
			name:  "mixed forms",
			input: `{"peer": "滴滴", "item": ["快车", "专车"]}`,
			want:  RuleConditions{Peer: []string{"滴滴"}, Item: []string{"快车", "专车"}},
		},
		{
			name:    "unknown key rejected",
			input:   `{"merchant": "星巴克"}`,
			wantErr: true,
		},
		{
			name:    "non-string pattern rejected",
			input:   `{"peer": 42}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RuleConditions
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleConditionsMarshalRoundTrip(t *testing.T) {
	original := RuleConditions{
		Peer:     []string{"星巴克", "Luckin"},
		Category: []string{"餐饮美食"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	// Empty keys are omitted from the stored form
	assert.NotContains(t, string(data), "item")

	var decoded RuleConditions
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestRuleConditionsString(t *testing.T) {
	c := RuleConditions{Peer: []string{"a", "b"}, Category: []string{"x"}}
	assert.Equal(t, "peer=a|b category=x", c.String())

	assert.Empty(t, RuleConditions{}.String())
}
