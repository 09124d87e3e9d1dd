package sqlstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// likeEscape LIKE子句使用的转义字符
// 不用反斜杠：MySQL字符串字面量里的反斜杠本身需要转义，各方言写法不一致
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// containsPattern 构造大小写不敏感的子串匹配模式
// 片段中的%和_按字面匹配
func containsPattern(fragment string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(fragment)) + "%"
}

// tripleHash (书名,作者,年份)的定长摘要，用于重复检查的索引列
// 书名和作者是不限长度的TEXT，MySQL不能直接对TEXT建完整索引，PostgreSQL的B-tree索引项也有大小上限
// 各字段以长度前缀拼接，年份为nil与任何整数年份都不同
func tripleHash(title, author string, year *int) string {
	var sb strings.Builder
	for _, s := range []string{title, author} {
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	}
	if year == nil {
		sb.WriteString("null")
	} else {
		sb.WriteString("y")
		sb.WriteString(strconv.Itoa(*year))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
