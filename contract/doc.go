// Copyright 2026 AgentFlow Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 contract 提供工具输入/输出契约的建模与校验能力。

所有工具共享同一个校验器，不做逐工具的临时检查。校验是纯函数：
不修改入参，收集全部违规项而非首个错误。

# 主要类型

  - Descriptor：契约描述：string/number/boolean/object/array/any 与 enum
  - Result：校验结果，含规范化后的值与全部 Violation
  - Violation：带字段路径（a.b、items[2]）的违规项

# 校验规则

  - 必填字段必须存在且非 null
  - 缺失的可选字段按 Default 填充（深拷贝），否则省略；显式 null 视同缺失
  - 未声明字段原样透传
  - 数值统一规范化为 float64
  - enum 比较：字符串区分大小写，数值按数值比较

# 典型用法

	in := contract.Object().
		Prop("city", contract.String()).
		Prop("units", contract.Enum("celsius", "fahrenheit").WithDefault("celsius")).
		Require("city")

	if err := contract.Check(in); err != nil { ... }
	res := contract.Validate(map[string]any{"city": "London"}, in)
	if !res.Valid() { ... }
*/
package contract
