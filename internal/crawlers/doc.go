// Package crawlers 基于Colly的异步抓取器
//
// Spider负责网络这一侧: 发出请求、按阶段注入HTTP头部、为搜索请求注入身份Cookie,
// 并把响应交给pipeline.Dispatcher。分发器返回的记录写入RecordSink,
// 后续请求重新提交给同一个collector。
//
// # 身份注入
//
// 请求上显式指定的身份优先 (被拦截后的重发);
// 未指定时,搜索请求在发出的那一刻从Cookie池读取当前身份;
// 公众号主页和文章页请求不携带Cookie。
//
//	spider := NewSpider(cfg.Crawl, pool, dispatcher, sink, headerManager)
//	spider.OnBranchDone = func(query string) { bar.Add(1) }
//	err := spider.Run(ctx, seeds)
//
// # 错误处理
//
//   - 搜索请求失败: 输出错误记录并结束该分支
//   - 文章请求失败: 释放对应的元数据,其他文章不受影响
//   - 页面结构不匹配: 记录日志并计数,合并到Run返回的error中
//
// 所有回调在colly的工作协程中并发执行,统计和错误列表由互斥锁保护。
package crawlers
