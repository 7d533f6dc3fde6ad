// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 expr 实现计算器工具使用的算术表达式求值。

支持 + - * / % ^ 与括号，一元正负号，以及 × ÷ 和 x 作为乘除别名。
^ 为右结合；除数或取模为零返回 ErrDivisionByZero。求值只做纯计算，
不会执行任何代码。
*/
package expr
