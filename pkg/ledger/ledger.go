// Package ledger 反范式计数器的原子增减。
//
// 所有计数更新都以 "col = col + delta" 的形式下推到数据库执行，
// 不在进程内读取-修改-写回，保证并发请求下不丢失更新。
// 调用方负责把计数更新与对应实体的创建/删除放在同一个事务里。
package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotApplied 没有任何行被更新：目标行不存在，或减法会让计数变成负数
var ErrNotApplied = errors.New("ledger: counter update not applied")

// Adjust 对 model 对应表中 id 行的 column 计数加上 delta
// delta 为负时附带 column >= -delta 的条件，计数不会小于 0
func Adjust(db *gorm.DB, model interface{}, id string, column string, delta int) error {
	if delta == 0 {
		return nil
	}

	col := clause.Column{Name: column}
	q := db.Model(model).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(clause.Gte{Column: col, Value: -delta})
	}

	res := q.UpdateColumn(column, gorm.Expr("? + ?", col, delta))
	if res.Error != nil {
		return fmt.Errorf("ledger: adjust %s by %d: %w", column, delta, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w (%s %+d on %s)", ErrNotApplied, column, delta, id)
	}
	return nil
}

// Increment 计数 +1
func Increment(db *gorm.DB, model interface{}, id, column string) error {
	return Adjust(db, model, id, column, 1)
}

// Decrement 计数 -1
func Decrement(db *gorm.DB, model interface{}, id, column string) error {
	return Adjust(db, model, id, column, -1)
}
